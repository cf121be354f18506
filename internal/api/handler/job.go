package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wzlab/deal_go_server/internal/api/middleware"
	"github.com/wzlab/deal_go_server/internal/pkg/response"
	"github.com/wzlab/deal_go_server/internal/service"
)

type JobHandler struct {
	jobService  *service.JobService
	dealService *service.DealService
}

func NewJobHandler(jobService *service.JobService, dealService *service.DealService) *JobHandler {
	return &JobHandler{
		jobService:  jobService,
		dealService: dealService,
	}
}

// Get 轮询任务状态
// GET /api/v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的任务ID")
		return
	}

	job, err := h.jobService.Get(userID, jobID)
	if err != nil {
		switch err {
		case service.ErrJobNotFound:
			response.NotFoundError(c, err.Error())
		case service.ErrJobPermission:
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, job)
}

// ListByDeal 某个交易最近的任务记录
// GET /api/v1/deals/:id/jobs
func (h *JobHandler) ListByDeal(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	dealID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的交易ID")
		return
	}

	// 先做归属校验
	if _, err := h.dealService.GetByID(userID, dealID); err != nil {
		switch err {
		case service.ErrDealNotFound:
			response.NotFoundError(c, err.Error())
		case service.ErrDealPermission:
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := h.jobService.ListByDeal(dealID, limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, jobs)
}
