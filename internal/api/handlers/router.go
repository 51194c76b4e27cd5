package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/r5gazer/internal/service"
	"github.com/langchou/r5gazer/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger           *zap.Logger
	dashboardService *service.DashboardService
	wsHub            *ws.Hub
	upgrader         websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	dashboardService *service.DashboardService,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:           logger,
		dashboardService: dashboardService,
		wsHub:            wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 开发环境允许所有来源
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// API 路由
	api := r.Group("/api")
	{
		// 快照
		api.GET("/snapshot", h.GetSnapshot)
		api.GET("/state", h.GetState)
		api.POST("/refresh", h.Refresh)

		// 充电
		api.GET("/charges", h.ListCharges)
		api.GET("/charges/summary", h.GetChargeSummary)
		api.GET("/battery/curve", h.GetBatteryCurve)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"state":      h.dashboardService.GetStatus().CurrentState,
		"ws_clients": h.wsHub.ClientCount(),
	})
}
