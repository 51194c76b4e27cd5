package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/r5gazer/internal/analysis"
	"github.com/langchou/r5gazer/internal/repository"
	"github.com/langchou/r5gazer/internal/service"
)

// GetSnapshot 获取最近的车辆快照
func (h *Handler) GetSnapshot(c *gin.Context) {
	snap, err := h.dashboardService.Snapshot(c.Request.Context())
	if err != nil {
		h.snapshotError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snap})
}

// GetState 获取刷新状态
func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.dashboardService.GetStatus()})
}

// Refresh 立即刷新数据，失败时保留上一次快照
func (h *Handler) Refresh(c *gin.Context) {
	snap, err := h.dashboardService.Refresh(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrRefreshInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "Refresh already in progress"})
			return
		}

		h.logger.Error("Failed to refresh snapshot", zap.Error(err))
		resp := gin.H{"error": err.Error()}
		if last, lastErr := h.dashboardService.Snapshot(c.Request.Context()); lastErr == nil {
			resp["data"] = last
		}
		c.JSON(http.StatusBadGateway, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snap})
}

// GetBatteryCurve 获取电量曲线
func (h *Handler) GetBatteryCurve(c *gin.Context) {
	snap, err := h.dashboardService.Snapshot(c.Request.Context())
	if err != nil {
		h.snapshotError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": analysis.BatteryCurve(snap.Charges)})
}

func (h *Handler) snapshotError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No snapshot available yet"})
		return
	}
	h.logger.Error("Failed to load snapshot", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load snapshot"})
}
