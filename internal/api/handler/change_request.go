package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wzlab/deal_go_server/internal/api/middleware"
	"github.com/wzlab/deal_go_server/internal/model/dto"
	"github.com/wzlab/deal_go_server/internal/pkg/response"
	"github.com/wzlab/deal_go_server/internal/service"
)

type ChangeRequestHandler struct {
	crService *service.ChangeRequestService
}

func NewChangeRequestHandler(crService *service.ChangeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{
		crService: crService,
	}
}

func crIDs(c *gin.Context) (dealID, crID int64, ok bool) {
	dealID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的交易ID")
		return 0, 0, false
	}
	crID, err = strconv.ParseInt(c.Param("crId"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的变更请求ID")
		return 0, 0, false
	}
	return dealID, crID, true
}

func (h *ChangeRequestHandler) respondError(c *gin.Context, err error) {
	switch err {
	case service.ErrDealNotFound, service.ErrCRNotFound:
		response.NotFoundError(c, err.Error())
	case service.ErrDealPermission:
		response.PermissionError(c, err.Error())
	case service.ErrCRNotOpen:
		response.DuplicateError(c, err.Error())
	case service.ErrCRNotAnalyzed, service.ErrDealAlreadyAccepted, service.ErrAnalysisRunning:
		response.PreconditionError(c, err.Error())
	case service.ErrCREmptyRequest, service.ErrBatchNotFound:
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

// Create 提交变更请求（单条或批量）
// POST /api/v1/deals/:id/change-requests
func (h *ChangeRequestHandler) Create(c *gin.Context) {
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

	var req dto.CreateChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	crs, err := h.crService.Create(c.Request.Context(), userID, dealID, middleware.GetUserRole(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "提交成功", crs)
}

// List 获取变更请求列表
// GET /api/v1/deals/:id/change-requests
func (h *ChangeRequestHandler) List(c *gin.Context) {
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

	crs, err := h.crService.List(userID, dealID, c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, crs)
}

// Get 获取变更请求详情
// GET /api/v1/deals/:id/change-requests/:crId
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	dealID, crID, ok := crIDs(c)
	if !ok {
		return
	}

	cr, err := h.crService.Get(userID, dealID, crID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, cr)
}

// Analyze 重新分析（仅针对分析失败的请求）
// POST /api/v1/deals/:id/change-requests/:crId/analyze
func (h *ChangeRequestHandler) Analyze(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	dealID, crID, ok := crIDs(c)
	if !ok {
		return
	}

	resp, err := h.crService.Analyze(c.Request.Context(), userID, dealID, crID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "任务已提交", resp)
}

// Accept 接受变更请求
// POST /api/v1/deals/:id/change-requests/:crId/accept
func (h *ChangeRequestHandler) Accept(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	dealID, crID, ok := crIDs(c)
	if !ok {
		return
	}

	resp, err := h.crService.Accept(c.Request.Context(), userID, dealID, crID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已接受", resp)
}

// Reject 拒绝变更请求
// POST /api/v1/deals/:id/change-requests/:crId/reject
func (h *ChangeRequestHandler) Reject(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	dealID, crID, ok := crIDs(c)
	if !ok {
		return
	}

	// 拒绝理由可选，空请求体按无理由处理
	var req dto.RejectChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.crService.Reject(userID, dealID, crID, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已拒绝", resp)
}

// Counter 反提案
// POST /api/v1/deals/:id/change-requests/:crId/counter
func (h *ChangeRequestHandler) Counter(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	dealID, crID, ok := crIDs(c)
	if !ok {
		return
	}

	var req dto.CounterChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.crService.Counter(c.Request.Context(), userID, dealID, crID, req.CounterText)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "反提案已提交", resp)
}

// BatchAction 批量处置同一批次的变更请求
// POST /api/v1/deals/:id/change-requests/batch
func (h *ChangeRequestHandler) BatchAction(c *gin.Context) {
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

	var req dto.BatchActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.crService.BatchAction(c.Request.Context(), userID, dealID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "批量处置完成", resp)
}
