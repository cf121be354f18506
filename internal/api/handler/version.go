package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wzlab/deal_go_server/internal/api/middleware"
	"github.com/wzlab/deal_go_server/internal/pkg/response"
	"github.com/wzlab/deal_go_server/internal/service"
)

type VersionHandler struct {
	versionService *service.VersionService
}

func NewVersionHandler(versionService *service.VersionService) *VersionHandler {
	return &VersionHandler{
		versionService: versionService,
	}
}

func (h *VersionHandler) respondError(c *gin.Context, err error) {
	switch err {
	case service.ErrDealNotFound, service.ErrVersionNotFound:
		response.NotFoundError(c, err.Error())
	case service.ErrDealPermission:
		response.PermissionError(c, err.Error())
	case service.ErrNoPreviousVersion, service.ErrSameVersion:
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

// List 版本列表（按版本号升序）
// GET /api/v1/deals/:id/versions
func (h *VersionHandler) List(c *gin.Context) {
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

	versions, err := h.versionService.List(userID, dealID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, versions)
}

// Get 版本详情
// GET /api/v1/deals/:id/versions/:versionId
func (h *VersionHandler) Get(c *gin.Context) {
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
	versionID, err := strconv.ParseInt(c.Param("versionId"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的版本ID")
		return
	}

	version, err := h.versionService.Get(userID, dealID, versionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, version)
}

// Diff 版本对比，不带 against 参数时与上一版本比较
// GET /api/v1/deals/:id/versions/:versionId/diff?against=:versionAId
func (h *VersionHandler) Diff(c *gin.Context) {
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
	versionID, err := strconv.ParseInt(c.Param("versionId"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的版本ID")
		return
	}

	var againstID int64
	if against := c.Query("against"); against != "" {
		againstID, err = strconv.ParseInt(against, 10, 64)
		if err != nil {
			response.ParamError(c, "无效的对比版本ID")
			return
		}
	}

	diff, err := h.versionService.Diff(userID, dealID, versionID, againstID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, diff)
}
