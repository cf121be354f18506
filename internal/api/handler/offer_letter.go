package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wzlab/deal_go_server/internal/api/middleware"
	"github.com/wzlab/deal_go_server/internal/model/dto"
	"github.com/wzlab/deal_go_server/internal/pkg/response"
	"github.com/wzlab/deal_go_server/internal/service"
)

type OfferLetterHandler struct {
	letterService *service.OfferLetterService
}

func NewOfferLetterHandler(letterService *service.OfferLetterService) *OfferLetterHandler {
	return &OfferLetterHandler{
		letterService: letterService,
	}
}

func (h *OfferLetterHandler) respondError(c *gin.Context, err error) {
	switch err {
	case service.ErrDealNotFound, service.ErrLetterNotFound:
		response.NotFoundError(c, err.Error())
	case service.ErrDealPermission:
		response.PermissionError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

// Generate 生成报价函
// POST /api/v1/deals/:id/offer-letters
func (h *OfferLetterHandler) Generate(c *gin.Context) {
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

	var req dto.GenerateOfferLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.letterService.Generate(c.Request.Context(), userID, dealID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "任务已提交", resp)
}

// List 报价函列表
// GET /api/v1/deals/:id/offer-letters
func (h *OfferLetterHandler) List(c *gin.Context) {
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

	letters, err := h.letterService.List(userID, dealID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, letters)
}

// Get 报价函详情
// GET /api/v1/deals/:id/offer-letters/:letterId
func (h *OfferLetterHandler) Get(c *gin.Context) {
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
	letterID, err := strconv.ParseInt(c.Param("letterId"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的报价函ID")
		return
	}

	letter, err := h.letterService.Get(userID, dealID, letterID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, letter)
}
