package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/r5gazer/internal/analysis"
	"github.com/langchou/r5gazer/internal/api/renault"
	"github.com/langchou/r5gazer/internal/config"
	"github.com/langchou/r5gazer/internal/models"
	"github.com/langchou/r5gazer/internal/repository"
	"github.com/langchou/r5gazer/internal/state"
	"github.com/langchou/r5gazer/pkg/ws"
)

// Fetcher 抓取一批原始车辆数据
type Fetcher interface {
	Fetch(ctx context.Context, creds renault.Credentials, start, end time.Time) (*models.VehicleBatch, error)
}

// Geocoder 逆地理编码
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error)
}

// ErrRefreshInProgress 已有刷新在进行
var ErrRefreshInProgress = errors.New("refresh already in progress")

// DashboardService 仪表盘服务：抓取、对账、缓存、通知
type DashboardService struct {
	cfg      *config.Config
	logger   *zap.Logger
	fetcher  Fetcher
	geocoder Geocoder // 可为 nil
	repo     *repository.SnapshotRepository
	machine  *state.Machine
	wsHub    *ws.Hub // 可为 nil

	refreshMu sync.Mutex // 同一时间只允许一次刷新

	mu          sync.RWMutex
	stopCh      chan struct{}
	wg          sync.WaitGroup
	subscribers []chan *models.VehicleSnapshot
	running     bool

	now func() time.Time
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(
	cfg *config.Config,
	logger *zap.Logger,
	fetcher Fetcher,
	geocoder Geocoder,
	repo *repository.SnapshotRepository,
	wsHub *ws.Hub,
) *DashboardService {
	svc := &DashboardService{
		cfg:      cfg,
		logger:   logger,
		fetcher:  fetcher,
		geocoder: geocoder,
		repo:     repo,
		wsHub:    wsHub,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
	svc.machine = state.NewMachine(svc.onStateChange)
	return svc
}

// Start 启动服务：立即刷新一次，配置了 REFRESH_INTERVAL 时周期刷新
func (s *DashboardService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("Dashboard service already running, skipping start")
		return
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.refreshLoop(ctx, stopCh)

	s.logger.Info("Dashboard service started", zap.Duration("refresh_interval", s.cfg.RefreshInterval))
}

// Stop 停止服务
func (s *DashboardService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Dashboard service stopped")
}

func (s *DashboardService) refreshLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	// Stop 时中断进行中的请求
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	// 启动时立即刷新一次
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Error("Initial refresh failed", zap.Error(err))
	}

	if s.cfg.RefreshInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Error("Periodic refresh failed", zap.Error(err))
			}
		}
	}
}

// Refresh 抓取最近 HISTORY_WINDOW_DAYS 天的数据并生成新快照
// 失败时保留上一次的快照
func (s *DashboardService) Refresh(ctx context.Context) (*models.VehicleSnapshot, error) {
	// 同一时间只允许一次抓取，后到的请求直接拒绝
	if !s.refreshMu.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer s.refreshMu.Unlock()

	if err := s.machine.Begin(); err != nil {
		return nil, ErrRefreshInProgress
	}

	snap, err := s.build(ctx)
	if err != nil {
		s.repo.RecordFailure(err)
		_ = s.machine.Fail(err)
		return nil, err
	}

	if err := s.repo.Save(ctx, snap); err != nil {
		s.repo.RecordFailure(err)
		_ = s.machine.Fail(err)
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	_ = s.machine.Succeed()

	s.logger.Info("Snapshot refreshed",
		zap.String("vin", snap.VIN),
		zap.Int("battery_level", snap.BatteryLevel),
		zap.Int("charges", len(snap.Charges)),
		zap.Float64("total_energy", snap.Stats.TotalEnergy))

	s.notifySubscribers(snap)
	s.broadcastSnapshot(snap)
	return snap, nil
}

func (s *DashboardService) build(ctx context.Context) (*models.VehicleSnapshot, error) {
	now := s.now().UTC()
	start := now.Add(-s.cfg.HistoryWindow())

	creds := renault.Credentials{
		Email:    s.cfg.RenaultEmail,
		Password: s.cfg.RenaultPassword,
	}

	batch, err := s.fetcher.Fetch(ctx, creds, start, now)
	if err != nil {
		return nil, fmt.Errorf("fetch vehicle data: %w", err)
	}

	snap, err := analysis.Aggregate(batch, analysis.AggregateOptions{
		UsableCapacity:          s.cfg.UsableCapacityKWh,
		SyntheticChargeDuration: s.cfg.SyntheticChargeDuration,
		Now:                     now,
	})
	if err != nil {
		return nil, err
	}

	if err := analysis.EstimateErr(snap.Range); err != nil {
		s.logger.Warn("Range estimate incomplete", zap.Error(err), zap.Strings("reasons", snap.Range.Degenerate))
	}

	s.geocode(ctx, snap)
	return snap, nil
}

// geocode 地址解析失败不影响快照
func (s *DashboardService) geocode(ctx context.Context, snap *models.VehicleSnapshot) {
	if s.geocoder == nil || (snap.GPS.Latitude == 0 && snap.GPS.Longitude == 0) {
		return
	}
	addr, err := s.geocoder.ReverseGeocode(ctx, snap.GPS.Latitude, snap.GPS.Longitude)
	if err != nil {
		s.logger.Warn("Failed to geocode vehicle position", zap.Error(err),
			zap.Float64("lat", snap.GPS.Latitude), zap.Float64("lng", snap.GPS.Longitude))
		return
	}
	snap.Address = addr
}

// Snapshot 获取缓存的快照
func (s *DashboardService) Snapshot(ctx context.Context) (*models.VehicleSnapshot, error) {
	return s.repo.Latest(ctx)
}

// Status 刷新状态
type Status struct {
	state.RefreshState
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

// GetStatus 获取刷新生命周期状态
func (s *DashboardService) GetStatus() Status {
	st := Status{RefreshState: s.machine.GetState()}
	if saved := s.repo.SavedAt(); !saved.IsZero() {
		st.FetchedAt = &saved
	}
	return st
}

// Subscribe 订阅快照更新
func (s *DashboardService) Subscribe() <-chan *models.VehicleSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *models.VehicleSnapshot, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// onStateChange 状态变化回调
func (s *DashboardService) onStateChange(from, to string) {
	s.logger.Debug("Refresh state changed", zap.String("from", from), zap.String("to", to))
}

// notifySubscribers 通知订阅者
func (s *DashboardService) notifySubscribers(snap *models.VehicleSnapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// 跳过慢消费者
		}
	}
}

// broadcastSnapshot 广播快照到 WebSocket
func (s *DashboardService) broadcastSnapshot(snap *models.VehicleSnapshot) {
	if s.wsHub == nil {
		return
	}
	s.wsHub.BroadcastSnapshot(snap)
	s.logger.Debug("Broadcasted snapshot via WebSocket", zap.Int("ws_clients", s.wsHub.ClientCount()))
}
