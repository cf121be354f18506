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

type DealHandler struct {
	dealService *service.DealService
}

func NewDealHandler(dealService *service.DealService) *DealHandler {
	return &DealHandler{
		dealService: dealService,
	}
}

// Create 创建交易
// POST /api/v1/deals
func (h *DealHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	deal, err := h.dealService.Create(userID, &req)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "创建成功", deal)
}

// List 获取交易列表
// GET /api/v1/deals
func (h *DealHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	search := c.Query("search")
	state := c.Query("state")

	resp, err := h.dealService.List(userID, page, pageSize, search, state)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, resp.Total, resp.Page, resp.PageSize, resp.Items)
}

// Get 获取交易详情
// GET /api/v1/deals/:id
func (h *DealHandler) Get(c *gin.Context) {
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

	deal, err := h.dealService.GetByID(userID, dealID)
	if err != nil {
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

	response.Success(c, deal)
}

// Update 更新交易信息
// PUT /api/v1/deals/:id
func (h *DealHandler) Update(c *gin.Context) {
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

	var req dto.UpdateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	deal, err := h.dealService.Update(userID, dealID, &req)
	if err != nil {
		switch err {
		case service.ErrDealNotFound:
			response.NotFoundError(c, err.Error())
		case service.ErrDealPermission:
			response.PermissionError(c, err.Error())
		case service.ErrDealAlreadyAccepted:
			response.PreconditionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "更新成功", deal)
}

// UploadContract 上传合同文件
// POST /api/v1/deals/:id/contract/upload
func (h *DealHandler) UploadContract(c *gin.Context) {
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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "请选择要上传的文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	resp, err := h.dealService.UploadContract(c.Request.Context(), userID, dealID, fileHeader.Filename, data)
	if err != nil {
		switch err {
		case service.ErrDealNotFound:
			response.NotFoundError(c, err.Error())
		case service.ErrDealPermission:
			response.PermissionError(c, err.Error())
		case service.ErrDealHasContract:
			response.DuplicateError(c, err.Error())
		case service.ErrUnsupportedFile, service.ErrFileTooLarge:
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "上传成功", resp)
}

// PasteContract 粘贴合同文本
// POST /api/v1/deals/:id/contract/paste
func (h *DealHandler) PasteContract(c *gin.Context) {
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

	var req dto.PasteContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.dealService.PasteContract(c.Request.Context(), userID, dealID, &req)
	if err != nil {
		switch err {
		case service.ErrDealNotFound:
			response.NotFoundError(c, err.Error())
		case service.ErrDealPermission:
			response.PermissionError(c, err.Error())
		case service.ErrDealHasContract:
			response.DuplicateError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "提交成功", resp)
}

// GenerateInitial AI 起草初始合同
// POST /api/v1/deals/:id/contract/generate
func (h *DealHandler) GenerateInitial(c *gin.Context) {
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

	var req dto.GenerateInitialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.dealService.GenerateInitial(c.Request.Context(), userID, dealID, &req)
	if err != nil {
		switch err {
		case service.ErrDealNotFound:
			response.NotFoundError(c, err.Error())
		case service.ErrDealPermission:
			response.PermissionError(c, err.Error())
		case service.ErrDealHasContract:
			response.DuplicateError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "任务已提交", resp)
}

// GenerateTimeline 生成关键日期时间线
// POST /api/v1/deals/:id/timeline
func (h *DealHandler) GenerateTimeline(c *gin.Context) {
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

	resp, err := h.dealService.GenerateTimeline(c.Request.Context(), userID, dealID)
	if err != nil {
		switch err {
		case service.ErrDealNotFound:
			response.NotFoundError(c, err.Error())
		case service.ErrDealPermission:
			response.PermissionError(c, err.Error())
		case service.ErrDealNoContract:
			response.PreconditionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "任务已提交", resp)
}

// ListAudit 查看交易审计记录
// GET /api/v1/deals/:id/audit
func (h *DealHandler) ListAudit(c *gin.Context) {
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

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	events, total, err := h.dealService.ListAudit(userID, dealID, page, pageSize)
	if err != nil {
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

	response.SuccessPage(c, total, page, pageSize, events)
}
