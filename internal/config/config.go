package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort string
	Debug      bool

	// MyRenault 账号
	RenaultEmail    string
	RenaultPassword string
	RenaultLocale   string
	RenaultCountry  string

	// Gigya / Kamereon API
	GigyaURL       string
	GigyaAPIKey    string
	KamereonURL    string
	KamereonAPIKey string
	HTTPTimeout    time.Duration

	// 电池与充电对账参数
	UsableCapacityKWh       float64
	SyntheticChargeDuration int // 分钟
	HistoryWindowDays       int

	// 自动刷新间隔，0 表示只在手动请求时刷新
	RefreshInterval time.Duration

	// 逆地理编码
	GeocoderEnabled bool
	NominatimURL    string

	// MQTT 发布（可选）
	MQTTURL         string
	MQTTTopicPrefix string
}

func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("PORT", "4000"),
		Debug:                   getEnvBool("DEBUG", false),
		RenaultEmail:            getEnv("RENAULT_EMAIL", ""),
		RenaultPassword:         getEnv("RENAULT_PASSWORD", ""),
		RenaultLocale:           getEnv("RENAULT_LOCALE", "fr_FR"),
		RenaultCountry:          getEnv("RENAULT_COUNTRY", "FR"),
		GigyaURL:                getEnv("GIGYA_URL", "https://accounts.eu1.gigya.com"),
		GigyaAPIKey:             getEnv("GIGYA_API_KEY", "3_4LKbCcMMcvjDm3X89LU4z4mNKYKdl_W0oD9w-Jvih21WqgJKtFZAnb9YdUgWT9_a"),
		KamereonURL:             getEnv("KAMEREON_URL", "https://api-wired-prod-1-euw1.wrd-aws.com"),
		KamereonAPIKey:          getEnv("KAMEREON_API_KEY", "YjkKtHmGfaceeuExUDKGxrLZGGvtVS0J"),
		HTTPTimeout:             getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		UsableCapacityKWh:       getEnvFloat("USABLE_CAPACITY_KWH", 52.0),
		SyntheticChargeDuration: getEnvInt("SYNTHETIC_CHARGE_DURATION_MIN", 359),
		HistoryWindowDays:       getEnvInt("HISTORY_WINDOW_DAYS", 30),
		RefreshInterval:         getEnvDuration("REFRESH_INTERVAL", 0),
		GeocoderEnabled:         getEnvBool("GEOCODER_ENABLED", true),
		NominatimURL:            getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		MQTTURL:                 getEnv("MQTT_URL", ""),
		MQTTTopicPrefix:         getEnv("MQTT_TOPIC_PREFIX", "r5gazer"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate 检查对账参数，避免后续出现除零
func (c *Config) Validate() error {
	if c.UsableCapacityKWh <= 0 {
		return fmt.Errorf("USABLE_CAPACITY_KWH must be positive, got %v", c.UsableCapacityKWh)
	}
	if c.SyntheticChargeDuration <= 0 {
		return fmt.Errorf("SYNTHETIC_CHARGE_DURATION_MIN must be positive, got %d", c.SyntheticChargeDuration)
	}
	if c.HistoryWindowDays <= 0 {
		return fmt.Errorf("HISTORY_WINDOW_DAYS must be positive, got %d", c.HistoryWindowDays)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("REFRESH_INTERVAL must not be negative, got %s", c.RefreshInterval)
	}
	return nil
}

// HasCredentials 是否配置了 MyRenault 账号
func (c *Config) HasCredentials() bool {
	return c.RenaultEmail != "" && c.RenaultPassword != ""
}

// HistoryWindow 充电历史的回溯窗口
func (c *Config) HistoryWindow() time.Duration {
	return time.Duration(c.HistoryWindowDays) * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
