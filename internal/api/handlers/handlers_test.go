package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/r5gazer/internal/api/renault"
	"github.com/langchou/r5gazer/internal/config"
	"github.com/langchou/r5gazer/internal/models"
	"github.com/langchou/r5gazer/internal/repository"
	"github.com/langchou/r5gazer/internal/service"
	"github.com/langchou/r5gazer/pkg/ws"
)

type stubFetcher struct {
	mu    sync.Mutex
	batch *models.VehicleBatch
	err   error

	// release 非空时 Fetch 先通知 started，再等待 release 关闭
	started chan struct{}
	release chan struct{}
}

func (f *stubFetcher) Fetch(ctx context.Context, creds renault.Credentials, start, end time.Time) (*models.VehicleBatch, error) {
	f.mu.Lock()
	started, release := f.started, f.release
	f.mu.Unlock()

	if release != nil {
		started <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

func (f *stubFetcher) block() (started, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = make(chan struct{}, 1)
	f.release = make(chan struct{})
	return f.started, f.release
}

func (f *stubFetcher) setBatch(batch *models.VehicleBatch) {
	f.mu.Lock()
	f.batch = batch
	f.mu.Unlock()
}

func (f *stubFetcher) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// 三次充电，相互衔接，没有补全
func stubBatch() *models.VehicleBatch {
	day := time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)
	charge := func(d, start, end int, energy float64) models.RawChargeRecord {
		st := day.AddDate(0, 0, d)
		return models.RawChargeRecord{
			StartTime: st, EndTime: st.Add(time.Hour),
			StartLevel: start, EndLevel: end, EnergyRecovered: energy, DurationMin: 60,
		}
	}
	return &models.VehicleBatch{
		VIN: "VF1AAAAA555777999",
		Battery: models.BatteryStatus{
			Timestamp:       time.Date(2025, 8, 6, 12, 24, 6, 0, time.UTC),
			BatteryLevel:    50,
			BatteryAutonomy: 150,
		},
		MileageKm: 200,
		Charges: []models.RawChargeRecord{
			charge(0, 10, 30, 10.4),
			charge(2, 30, 40, 5.2),
			charge(4, 40, 50, 5.2),
		},
	}
}

type testEnv struct {
	router  *gin.Engine
	svc     *service.DashboardService
	fetcher *stubFetcher
	hub     *ws.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		UsableCapacityKWh:       52,
		SyntheticChargeDuration: 359,
		HistoryWindowDays:       30,
	}
	logger := zap.NewNop()
	hub := ws.NewHub(logger)
	fetcher := &stubFetcher{batch: stubBatch()}
	svc := service.NewDashboardService(cfg, logger, fetcher, nil, repository.NewSnapshotRepository(), hub)

	r := gin.New()
	NewHandler(logger, svc, hub).RegisterRoutes(r)
	return &testEnv{router: r, svc: svc, fetcher: fetcher, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path string) (int, map[string]json.RawMessage) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	e.router.ServeHTTP(w, req)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w.Code, body
}

func (e *testEnv) refresh(t *testing.T) {
	t.Helper()
	_, err := e.svc.Refresh(context.Background())
	require.NoError(t, err)
}

func TestSnapshotBeforeFirstRefresh(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/snapshot", "/api/charges", "/api/charges/summary", "/api/battery/curve"} {
		code, _ := env.do(t, http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, code, path)
	}
}

func TestRefreshAndSnapshot(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, code)

	var snap struct {
		VIN   string `json:"vin"`
		Range struct {
			MaxAutonomyOfficial *int `json:"max_autonomy_official"`
		} `json:"range"`
		Stats struct {
			SessionCount   int      `json:"session_count"`
			AvgConsumption *float64 `json:"avg_consumption"`
		} `json:"charge_stats"`
		Charges []json.RawMessage `json:"charge_history"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &snap))
	assert.Equal(t, "VF1AAAAA555777999", snap.VIN)
	require.NotNil(t, snap.Range.MaxAutonomyOfficial)
	assert.Equal(t, 300, *snap.Range.MaxAutonomyOfficial)
	assert.Equal(t, 3, snap.Stats.SessionCount)
	assert.Len(t, snap.Charges, 3)

	code, _ = env.do(t, http.MethodGet, "/api/snapshot")
	assert.Equal(t, http.StatusOK, code)
}

func TestRefreshFailureReturnsLastSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.refresh(t)

	env.fetcher.fail(renault.ErrRateLimited)
	code, body := env.do(t, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, string(body["error"]), "rate limited")
	assert.Contains(t, string(body["data"]), "VF1AAAAA555777999")

	code, body = env.do(t, http.MethodGet, "/api/state")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body["data"]), `"state":"failed"`)
}

func TestRefreshFailureWithoutSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.fail(errors.New("boom"))

	code, body := env.do(t, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusBadGateway, code)
	_, hasData := body["data"]
	assert.False(t, hasData)
}

func TestRefreshConflictWhileInFlight(t *testing.T) {
	env := newTestEnv(t)
	started, release := env.fetcher.block()

	done := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
		done <- w.Code
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh never reached the fetcher")
	}

	code, body := env.do(t, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, string(body["error"]), "in progress")

	close(release)
	select {
	case code := <-done:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh did not finish")
	}
}

type chargeRowJSON struct {
	Number int `json:"number"`
	Record struct {
		StartTime  time.Time `json:"start_time"`
		StartLevel int       `json:"start_level"`
		Synthetic  bool      `json:"synthetic"`
	} `json:"record"`
}

func listCharges(t *testing.T, env *testEnv, query string) []chargeRowJSON {
	t.Helper()
	code, body := env.do(t, http.MethodGet, "/api/charges"+query)
	require.Equal(t, http.StatusOK, code)
	var rows []chargeRowJSON
	require.NoError(t, json.Unmarshal(body["data"], &rows))
	return rows
}

func numbers(rows []chargeRowJSON) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Number
	}
	return out
}

func TestListCharges(t *testing.T) {
	env := newTestEnv(t)
	env.refresh(t)

	assert.Equal(t, []int{1, 2, 3}, numbers(listCharges(t, env, "")))

	desc := listCharges(t, env, "?order=desc")
	assert.Equal(t, []int{3, 2, 1}, numbers(desc))
	assert.Equal(t, 40, desc[0].Record.StartLevel)

	assert.Equal(t, []int{3, 2}, numbers(listCharges(t, env, "?order=desc&per_page=2")))
	assert.Equal(t, []int{1}, numbers(listCharges(t, env, "?order=desc&per_page=2&page=2")))
	assert.Equal(t, []int{3}, numbers(listCharges(t, env, "?per_page=2&page=2")))
	assert.Empty(t, listCharges(t, env, "?per_page=2&page=5"))
}

func TestListChargesOrderedByStartTime(t *testing.T) {
	env := newTestEnv(t)

	// 同一天两次充电，中间有电量缺口，补录记录落在前一天
	day := time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)
	batch := stubBatch()
	batch.Charges = []models.RawChargeRecord{
		{StartTime: day, EndTime: day.Add(2 * time.Hour), StartLevel: 10, EndLevel: 60, EnergyRecovered: 26, DurationMin: 120},
		{StartTime: day.Add(6 * time.Hour), EndTime: day.Add(7 * time.Hour), StartLevel: 80, EndLevel: 90, EnergyRecovered: 5.2, DurationMin: 60},
	}
	env.fetcher.setBatch(batch)
	env.refresh(t)

	desc := listCharges(t, env, "?order=desc")
	require.Len(t, desc, 3)
	assert.Equal(t, []int{3, 2, 1}, numbers(desc))
	for i := 1; i < len(desc); i++ {
		assert.False(t, desc[i].Record.StartTime.After(desc[i-1].Record.StartTime), "row %d", i)
	}
	assert.True(t, desc[2].Record.Synthetic)

	asc := listCharges(t, env, "")
	assert.Equal(t, []int{1, 2, 3}, numbers(asc))
	assert.True(t, asc[0].Record.Synthetic)

	page := listCharges(t, env, "?order=desc&per_page=2&page=2")
	require.Len(t, page, 1)
	assert.Equal(t, 1, page[0].Number)
	assert.True(t, page[0].Record.Synthetic)
}

func TestChargeSummaryAndCurve(t *testing.T) {
	env := newTestEnv(t)
	env.refresh(t)

	code, body := env.do(t, http.MethodGet, "/api/charges/summary")
	require.Equal(t, http.StatusOK, code)
	var summary struct {
		Summary models.ChargeSummary `json:"summary"`
		Stats   models.ChargeStats   `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &summary))
	assert.InDelta(t, 20.8, summary.Summary.TotalEnergy, 1e-9)
	assert.InDelta(t, 3.0, summary.Summary.TotalHours, 1e-9)
	require.NotNil(t, summary.Summary.AveragePower)
	assert.InDelta(t, 20.8/3, *summary.Summary.AveragePower, 1e-9)
	assert.Equal(t, 3, summary.Stats.SessionCount)

	code, body = env.do(t, http.MethodGet, "/api/battery/curve")
	require.Equal(t, http.StatusOK, code)
	var points []models.LevelPoint
	require.NoError(t, json.Unmarshal(body["data"], &points))
	require.Len(t, points, 6)
	assert.Equal(t, 10, points[0].Level)
	assert.Equal(t, 50, points[5].Level)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `"ok"`, string(body["status"]))
	assert.JSONEq(t, `"idle"`, string(body["state"]))
}

func TestWebSocketInitAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	go env.hub.Run()
	env.hub.SetInitDataProvider(func() *ws.InitData {
		data := &ws.InitData{Status: env.svc.GetStatus()}
		if snap, err := env.svc.Snapshot(context.Background()); err == nil {
			data.Snapshot = snap
		}
		return data
	})
	env.refresh(t)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.MsgTypeInit, msg.Type)
	assert.Contains(t, string(msg.Data), "VF1AAAAA555777999")

	env.refresh(t)
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.MsgTypeSnapshotUpdate, msg.Type)
	assert.Contains(t, string(msg.Data), "charge_history")
}
