package publish

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Client MQTT 客户端封装，支持 mqtt/mqtts/ws/wss
type Client struct {
	client mqtt.Client
	logger *zap.Logger
}

// brokerURL 将 mqtt:// 和 mqtts:// 转为 paho 使用的 tcp:// 和 ssl://
func brokerURL(parsed *url.URL, raw string) (string, bool, error) {
	switch parsed.Scheme {
	case "ws":
		return raw, false, nil
	case "wss":
		return raw, true, nil
	case "mqtt", "tcp":
		return strings.Replace(raw, parsed.Scheme+"://", "tcp://", 1), false, nil
	case "mqtts", "ssl":
		return strings.Replace(raw, parsed.Scheme+"://", "ssl://", 1), true, nil
	default:
		return "", false, fmt.Errorf("unsupported protocol scheme: %s (supported: ws, wss, mqtt, mqtts)", parsed.Scheme)
	}
}

// NewClient 连接 MQTT broker
func NewClient(mqttURL, clientID string, logger *zap.Logger) (*Client, error) {
	parsed, err := url.Parse(mqttURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT URL: %w", err)
	}

	broker, secure, err := brokerURL(parsed, mqttURL)
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetMaxReconnectInterval(10 * time.Second)
	if secure {
		// 家用 broker 多为自签证书
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}

	if parsed.User != nil {
		password, _ := parsed.User.Password()
		opts.SetUsername(parsed.User.Username())
		opts.SetPassword(password)
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Debug("MQTT connected")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Info("MQTT client connected",
		zap.String("broker", cleanURL(mqttURL)),
		zap.String("client_id", clientID))

	return &Client{client: client, logger: logger}, nil
}

// Publish QoS 1 发布，最多等待 5 秒
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, 1, retained, payload)

	const pubTimeout = 5 * time.Second
	if !token.WaitTimeout(pubTimeout) {
		return fmt.Errorf("publish to topic %s timed out after %s", topic, pubTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	c.logger.Debug("Published MQTT message",
		zap.String("topic", topic),
		zap.Int("size", len(payload)),
		zap.Bool("retained", retained))
	return nil
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
	c.logger.Debug("MQTT client disconnected")
}

// cleanURL 日志中隐藏账号密码
func cleanURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if parsed.User != nil {
		parsed.User = url.UserPassword("***", "***")
	}
	return parsed.String()
}
