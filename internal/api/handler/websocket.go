package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wzlab/deal_go_server/internal/pkg/jwt"
	"github.com/wzlab/deal_go_server/internal/pkg/pubsub"
	"github.com/wzlab/deal_go_server/internal/pkg/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境需要验证 Origin
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	hub       *ws.Hub
	jwtSecret string
}

func NewWebSocketHandler(hub *ws.Hub, jwtSecret string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// Handle WebSocket 连接处理
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := jwt.ParseToken(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := &ws.Client{
		UserID: claims.UserID,
		Conn:   conn,
	}

	h.hub.Register(client)

	// 保持连接，读取消息（主要用于检测断开）
	go func() {
		defer h.hub.Unregister(client)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

// BridgeProgress 把 Redis 进度频道转发到对应用户的 WebSocket 连接。
// 订阅断开时由调用方负责重启
func BridgeProgress(hub *ws.Hub) func(*pubsub.ProgressMessage) {
	return func(msg *pubsub.ProgressMessage) {
		if msg.UserID == 0 || !hub.IsOnline(msg.UserID) {
			return
		}
		if err := hub.SendToUser(msg.UserID, &ws.Message{
			Type: msg.Type,
			Data: msg,
		}); err != nil {
			log.Printf("Failed to forward progress to user %d: %v", msg.UserID, err)
		}
	}
}
