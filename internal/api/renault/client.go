package renault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// jwtLifetime 申请的 JWT 有效期（秒）
const jwtLifetime = 900

// Options 客户端配置
type Options struct {
	GigyaURL       string
	GigyaAPIKey    string
	KamereonURL    string
	KamereonAPIKey string
	Country        string
	Timeout        time.Duration
}

// session 登录后的会话信息（只保存在内存中）
type session struct {
	email      string
	loginToken string
	personID   string
	idToken    string
	expiresAt  time.Time
}

func (s *session) valid(email string) bool {
	return s != nil && s.email == email && time.Now().Before(s.expiresAt)
}

// Client MyRenault (Gigya + Kamereon) API 客户端
type Client struct {
	httpClient *http.Client
	opts       Options
	logger     *zap.Logger

	mu      sync.Mutex
	session *session
}

// NewClient 创建新的 Renault API 客户端
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Country == "" {
		opts.Country = "FR"
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		opts:   opts,
		logger: logger,
	}
}

// Logout 丢弃内存中的会话
func (c *Client) Logout() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

func (c *Client) ensureSession(ctx context.Context, creds Credentials) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.valid(creds.Email) {
		return c.session, nil
	}

	if creds.Email == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: missing credentials", ErrUnauthorized)
	}

	s := &session{email: creds.Email}

	// 1. 账号密码登录
	var login gigyaLoginResponse
	if err := c.gigya(ctx, "/accounts.login", url.Values{
		"loginID":  {creds.Email},
		"password": {creds.Password},
	}, &login); err != nil {
		return nil, fmt.Errorf("gigya login: %w", err)
	}
	s.loginToken = login.SessionInfo.CookieValue

	// 2. 获取 personId
	var info gigyaAccountInfoResponse
	if err := c.gigya(ctx, "/accounts.getAccountInfo", url.Values{
		"login_token": {s.loginToken},
	}, &info); err != nil {
		return nil, fmt.Errorf("gigya account info: %w", err)
	}
	s.personID = info.Data.PersonID

	// 3. 申请 JWT
	var jwt gigyaJWTResponse
	if err := c.gigya(ctx, "/accounts.getJWT", url.Values{
		"login_token": {s.loginToken},
		"fields":      {"data.personId,data.gigyaDataCenter"},
		"expiration":  {fmt.Sprint(jwtLifetime)},
	}, &jwt); err != nil {
		return nil, fmt.Errorf("gigya jwt: %w", err)
	}
	s.idToken = jwt.IDToken
	// 提前一分钟过期
	s.expiresAt = time.Now().Add((jwtLifetime - 60) * time.Second)

	c.session = s
	c.logger.Debug("Logged in to MyRenault", zap.String("person_id", s.personID))
	return s, nil
}

// gigya 调用 Gigya 接口（表单 POST）
func (c *Client) gigya(ctx context.Context, path string, form url.Values, out interface{}) error {
	form.Set("ApiKey", c.opts.GigyaAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.GigyaURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	// Gigya 出错时也返回 200，错误码在 body 里
	var base gigyaResponse
	if err := json.Unmarshal(body, &base); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if base.ErrorCode != 0 {
		return fmt.Errorf("%w: gigya error %d %s", ErrUnauthorized, base.ErrorCode, base.ErrorMessage)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// kamereon 执行带认证的 Kamereon GET 请求
func (c *Client) kamereon(ctx context.Context, s *session, path string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("country", c.opts.Country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.KamereonURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.opts.KamereonAPIKey)
	req.Header.Set("x-gigya-id_token", s.idToken)
	req.Header.Set("Content-Type", "application/vnd.api+json")
	req.Header.Set("User-Agent", "r5gazer/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// 处理不同状态码
	switch resp.StatusCode {
	case http.StatusOK:
		// 正常
	case http.StatusUnauthorized, http.StatusForbidden:
		c.Logout()
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotSupported
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("kamereon %s failed: status=%d body=%s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// carAdapter 调用 kca/car-adapter 接口并解析 attributes
func (c *Client) carAdapter(ctx context.Context, s *session, accountID, vin, version, endpoint string, query url.Values, out interface{}) error {
	path := fmt.Sprintf("/commerce/v1/accounts/%s/kamereon/kca/car-adapter/%s/cars/%s/%s",
		url.PathEscape(accountID), version, url.PathEscape(vin), endpoint)

	var resp kcaResponse
	if err := c.kamereon(ctx, s, path, query, &resp); err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	if len(resp.Data.Attributes) == 0 {
		return fmt.Errorf("%s: empty attributes", endpoint)
	}
	if err := json.Unmarshal(resp.Data.Attributes, out); err != nil {
		return fmt.Errorf("%s: decode attributes: %w", endpoint, err)
	}
	return nil
}

// GetPerson 获取用户信息（含账户列表）
func (c *Client) GetPerson(ctx context.Context, creds Credentials) (*Person, error) {
	s, err := c.ensureSession(ctx, creds)
	if err != nil {
		return nil, err
	}

	var person Person
	if err := c.kamereon(ctx, s, "/commerce/v1/persons/"+url.PathEscape(s.personID), nil, &person); err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return &person, nil
}

// GetVehicles 获取账户下的车辆
func (c *Client) GetVehicles(ctx context.Context, creds Credentials, accountID string) ([]VehicleLink, error) {
	s, err := c.ensureSession(ctx, creds)
	if err != nil {
		return nil, err
	}

	var resp vehiclesResponse
	path := fmt.Sprintf("/commerce/v1/accounts/%s/vehicles", url.PathEscape(accountID))
	if err := c.kamereon(ctx, s, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get vehicles: %w", err)
	}
	return resp.VehicleLinks, nil
}

// GetBatteryStatus 获取电池状态
func (c *Client) GetBatteryStatus(ctx context.Context, creds Credentials, accountID, vin string) (*BatteryStatusAttributes, error) {
	s, err := c.ensureSession(ctx, creds)
	if err != nil {
		return nil, err
	}
	var attrs BatteryStatusAttributes
	if err := c.carAdapter(ctx, s, accountID, vin, "v2", "battery-status", nil, &attrs); err != nil {
		return nil, err
	}
	return &attrs, nil
}

// GetCockpit 获取里程
func (c *Client) GetCockpit(ctx context.Context, creds Credentials, accountID, vin string) (*CockpitAttributes, error) {
	s, err := c.ensureSession(ctx, creds)
	if err != nil {
		return nil, err
	}
	var attrs CockpitAttributes
	if err := c.carAdapter(ctx, s, accountID, vin, "v1", "cockpit", nil, &attrs); err != nil {
		return nil, err
	}
	return &attrs, nil
}

// GetLocation 获取 GPS 位置
func (c *Client) GetLocation(ctx context.Context, creds Credentials, accountID, vin string) (*LocationAttributes, error) {
	s, err := c.ensureSession(ctx, creds)
	if err != nil {
		return nil, err
	}
	var attrs LocationAttributes
	if err := c.carAdapter(ctx, s, accountID, vin, "v1", "location", nil, &attrs); err != nil {
		return nil, err
	}
	return &attrs, nil
}

// GetCharges 获取 [start, end] 内的充电记录
func (c *Client) GetCharges(ctx context.Context, creds Credentials, accountID, vin string, start, end time.Time) ([]Charge, error) {
	s, err := c.ensureSession(ctx, creds)
	if err != nil {
		return nil, err
	}
	query := url.Values{
		"start": {start.UTC().Format("20060102")},
		"end":   {end.UTC().Format("20060102")},
	}
	var attrs ChargesAttributes
	if err := c.carAdapter(ctx, s, accountID, vin, "v1", "charges", query, &attrs); err != nil {
		return nil, err
	}
	return attrs.Charges, nil
}

// 错误定义
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrNotSupported = errors.New("endpoint not supported for this vehicle")
	ErrNoAccount    = errors.New("no MYRENAULT account")
	ErrNoVehicle    = errors.New("no vehicle linked to account")
)
