package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/r5gazer/internal/models"
)

// maxCacheSize 缓存上限，超过后整体清空
const maxCacheSize = 1000

// Client Nominatim（OpenStreetMap）逆地理编码客户端
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
	logger     *zap.Logger

	// 缓存：车辆停放时坐标基本不变，避免重复请求
	cache   map[string]*models.Address
	cacheMu sync.RWMutex

	// 请求限流（每秒最多 1 次）
	minInterval time.Duration
	lastRequest time.Time
	requestMu   sync.Mutex
}

// NewClient 创建逆地理编码客户端
func NewClient(baseURL, language string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:      logger,
		cache:       make(map[string]*models.Address),
		minInterval: time.Second,
	}
}

// ReverseGeocode 根据经纬度获取结构化地址
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error) {
	// 缓存 key 精确到小数点后 4 位，约 11 米
	cacheKey := fmt.Sprintf("%.4f,%.4f", lat, lng)

	c.cacheMu.RLock()
	if addr, ok := c.cache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		return addr, nil
	}
	c.cacheMu.RUnlock()

	address, err := c.reverse(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	if len(c.cache) >= maxCacheSize {
		c.cache = make(map[string]*models.Address)
	}
	c.cache[cacheKey] = address
	c.cacheMu.Unlock()

	return address, nil
}

// nominatimResponse Nominatim 逆地理编码响应
type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error,omitempty"`
}

type nominatimAddress struct {
	HouseNumber  string `json:"house_number"`
	Road         string `json:"road"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	State        string `json:"state"`
	Country      string `json:"country"`
	Postcode     string `json:"postcode"`
}

func (c *Client) throttle(ctx context.Context) error {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	if wait := c.minInterval - time.Since(c.lastRequest); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func (c *Client) reverse(ctx context.Context, lat, lng float64) (*models.Address, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	query := url.Values{
		"lat":             {fmt.Sprintf("%.6f", lat)},
		"lon":             {fmt.Sprintf("%.6f", lng)},
		"format":          {"json"},
		"accept-language": {c.language},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Nominatim 要求设置 User-Agent
	req.Header.Set("User-Agent", "r5gazer/1.0 (Renault vehicle dashboard)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim api returned status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("nominatim api error: %s", result.Error)
	}

	// 城市字段可能在 city/town/village/municipality 中
	city := firstNonEmpty(result.Address.City, result.Address.Town, result.Address.Village, result.Address.Municipality)

	address := &models.Address{
		FormattedAddress: result.DisplayName,
		Country:          result.Address.Country,
		Region:           result.Address.State,
		City:             city,
		Postcode:         result.Address.Postcode,
		Street:           result.Address.Road,
		HouseNumber:      result.Address.HouseNumber,
	}

	c.logger.Debug("Geocoded via Nominatim",
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.String("address", address.FormattedAddress))

	return address, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// CacheSize 获取缓存大小
func (c *Client) CacheSize() int {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return len(c.cache)
}
