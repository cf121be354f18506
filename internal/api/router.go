package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wzlab/deal_go_server/config"
	"github.com/wzlab/deal_go_server/internal/api/handler"
	"github.com/wzlab/deal_go_server/internal/api/middleware"
)

type Router struct {
	dealHandler      *handler.DealHandler
	crHandler        *handler.ChangeRequestHandler
	versionHandler   *handler.VersionHandler
	jobHandler       *handler.JobHandler
	letterHandler    *handler.OfferLetterHandler
	websocketHandler *handler.WebSocketHandler
	limiter          middleware.Limiter
	cfg              *config.Config
}

func NewRouter(
	dealHandler *handler.DealHandler,
	crHandler *handler.ChangeRequestHandler,
	versionHandler *handler.VersionHandler,
	jobHandler *handler.JobHandler,
	letterHandler *handler.OfferLetterHandler,
	websocketHandler *handler.WebSocketHandler,
	limiter middleware.Limiter,
	cfg *config.Config,
) *Router {
	return &Router{
		dealHandler:      dealHandler,
		crHandler:        crHandler,
		versionHandler:   versionHandler,
		jobHandler:       jobHandler,
		letterHandler:    letterHandler,
		websocketHandler: websocketHandler,
		limiter:          limiter,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		if r.limiter != nil {
			authenticated.Use(middleware.RateLimit(r.limiter))
		}
		{
			// 任务轮询
			authenticated.GET("/jobs/:id", r.jobHandler.Get)

			// 交易
			deals := authenticated.Group("/deals")
			{
				deals.POST("", r.dealHandler.Create)
				deals.GET("", r.dealHandler.List)
				deals.GET("/:id", r.dealHandler.Get)
				deals.PUT("/:id", r.dealHandler.Update)
				deals.GET("/:id/audit", r.dealHandler.ListAudit)
				deals.GET("/:id/jobs", r.jobHandler.ListByDeal)

				// 合同引导
				deals.POST("/:id/contract/upload", r.dealHandler.UploadContract)
				deals.POST("/:id/contract/paste", r.dealHandler.PasteContract)
				deals.POST("/:id/contract/generate", r.dealHandler.GenerateInitial)
				deals.POST("/:id/timeline", r.dealHandler.GenerateTimeline)

				// 变更请求
				deals.POST("/:id/change-requests", r.crHandler.Create)
				deals.GET("/:id/change-requests", r.crHandler.List)
				deals.POST("/:id/change-requests/batch", r.crHandler.BatchAction)
				deals.GET("/:id/change-requests/:crId", r.crHandler.Get)
				deals.POST("/:id/change-requests/:crId/analyze", r.crHandler.Analyze)
				deals.POST("/:id/change-requests/:crId/accept", r.crHandler.Accept)
				deals.POST("/:id/change-requests/:crId/reject", r.crHandler.Reject)
				deals.POST("/:id/change-requests/:crId/counter", r.crHandler.Counter)

				// 版本
				deals.GET("/:id/versions", r.versionHandler.List)
				deals.GET("/:id/versions/:versionId", r.versionHandler.Get)
				deals.GET("/:id/versions/:versionId/diff", r.versionHandler.Diff)

				// 报价函
				deals.POST("/:id/offer-letters", r.letterHandler.Generate)
				deals.GET("/:id/offer-letters", r.letterHandler.List)
				deals.GET("/:id/offer-letters/:letterId", r.letterHandler.Get)
			}
		}
	}

	// 健康检查
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return engine
}
