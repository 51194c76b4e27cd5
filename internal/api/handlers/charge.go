package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/langchou/r5gazer/internal/analysis"
	"github.com/langchou/r5gazer/internal/models"
)

// ListCharges 获取对账后的充电列表，按开始时间排序
// order=desc 时最新的排在最前；不传 per_page 返回全部
func (h *Handler) ListCharges(c *gin.Context) {
	desc := c.DefaultQuery("order", "asc") == "desc"

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "0"))
	if page < 1 {
		page = 1
	}
	if perPage < 0 || perPage > 100 {
		perPage = 20
	}

	// 只读取一次快照，编号和分页基于同一份数据
	snap, err := h.dashboardService.Snapshot(c.Request.Context())
	if err != nil {
		h.snapshotError(c, err)
		return
	}

	var rows []models.ChargeRow
	if desc {
		rows = analysis.DisplayOrder(snap.Charges)
	} else {
		rows = analysis.ChronologicalRows(snap.Charges)
	}
	total := len(rows)

	if perPage > 0 {
		offset := (page - 1) * perPage
		if offset > total {
			offset = total
		}
		end := offset + perPage
		if end > total {
			end = total
		}
		rows = rows[offset:end]
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rows,
		"pagination": gin.H{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}

// GetChargeSummary 获取充电表格合计行
func (h *Handler) GetChargeSummary(c *gin.Context) {
	snap, err := h.dashboardService.Snapshot(c.Request.Context())
	if err != nil {
		h.snapshotError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"summary": analysis.Summarize(snap.Charges),
			"stats":   snap.Stats,
		},
	})
}
