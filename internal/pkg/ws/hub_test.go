package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_IsOnline_NoConnections(t *testing.T) {
	hub := NewHub()

	assert.False(t, hub.IsOnline(123))
}

func TestHub_SendToUser_UserNotOnline(t *testing.T) {
	hub := NewHub()

	msg := &Message{
		Type: "test",
		Data: map[string]string{"key": "value"},
	}

	// 用户不在线时直接丢弃，不报错
	err := hub.SendToUser(123, msg)
	assert.NoError(t, err)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	c1 := &Client{UserID: 1}
	c2 := &Client{UserID: 1}
	c3 := &Client{UserID: 2}

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	assert.Equal(t, 3, hub.ConnectionCount())
	assert.True(t, hub.IsOnline(1))
	assert.True(t, hub.IsOnline(2))

	hub.Unregister(c1)
	assert.Equal(t, 2, hub.ConnectionCount())
	assert.True(t, hub.IsOnline(1)) // 还有第二个连接

	hub.Unregister(c2)
	assert.False(t, hub.IsOnline(1))

	hub.Unregister(c3)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_SendToUser_Delivery(t *testing.T) {
	hub := NewHub()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		client := &Client{UserID: 42, Conn: conn}
		hub.Register(client)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// 等待服务端注册连接
	deadline := time.Now().Add(time.Second)
	for !hub.IsOnline(42) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, hub.IsOnline(42))

	msg := &Message{
		Type: "progress",
		Data: map[string]interface{}{"deal_id": 7, "progress": 40},
	}
	require.NoError(t, hub.SendToUser(42, msg))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var received Message
	require.NoError(t, conn.ReadJSON(&received))

	assert.Equal(t, "progress", received.Type)
	data := received.Data.(map[string]interface{})
	assert.Equal(t, float64(7), data["deal_id"])
	assert.Equal(t, float64(40), data["progress"])
}
