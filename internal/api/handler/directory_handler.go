package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/service"
	"github.com/hellstar-bit/Accesum-SENA-sub000/pkg/response"
)

// DirectoryHandler 学员目录 HTTP 处理器（只读）
type DirectoryHandler struct {
	directorySvc service.DirectoryService
}

// NewDirectoryHandler 创建 DirectoryHandler
func NewDirectoryHandler(directorySvc service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directorySvc: directorySvc}
}

// ListCohorts 列出编组
// GET /api/v1/cohorts
func (h *DirectoryHandler) ListCohorts(c *gin.Context) {
	items, err := h.directorySvc.ListCohorts(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, items)
}

// ListLearners 列出编组在册学员
// GET /api/v1/cohorts/:id/learners
func (h *DirectoryHandler) ListLearners(c *gin.Context) {
	items, err := h.directorySvc.ListLearners(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrCohortNotFound) {
			response.NotFound(c, 13001, "编组不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, items)
}
