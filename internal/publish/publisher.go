// Package publish 将车辆快照发布到 MQTT
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/langchou/r5gazer/internal/models"
)

// Broker 发布消息的最小接口
type Broker interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Publisher 快照发布器
// 主题：<prefix>/<vin>/snapshot（完整 JSON）和 <prefix>/<vin>/<sensor>（单值）
type Publisher struct {
	broker Broker
	prefix string
	logger *zap.Logger
}

// NewPublisher 创建发布器
func NewPublisher(broker Broker, prefix string, logger *zap.Logger) *Publisher {
	return &Publisher{
		broker: broker,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// Run 持续发布订阅到的快照，直到 ctx 结束或 channel 关闭
func (p *Publisher) Run(ctx context.Context, updates <-chan *models.VehicleSnapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := p.PublishSnapshot(snap); err != nil {
				p.logger.Error("Failed to publish snapshot", zap.Error(err))
			}
		}
	}
}

// BaseTopic 车辆的根主题
func (p *Publisher) BaseTopic(vin string) string {
	return cleanTopic(p.prefix, vin)
}

// PublishSnapshot 发布快照和单值传感器（retained）
func (p *Publisher) PublishSnapshot(snap *models.VehicleSnapshot) error {
	if snap == nil {
		return fmt.Errorf("publish snapshot: nil snapshot")
	}

	base := p.BaseTopic(snap.VIN)

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := p.broker.Publish(base+"/snapshot", payload, true); err != nil {
		return err
	}

	for _, s := range sensorValues(snap) {
		if err := p.broker.Publish(base+"/"+s.name, []byte(s.value), true); err != nil {
			return err
		}
	}

	p.logger.Debug("Published snapshot", zap.String("topic", base), zap.Int("size", len(payload)))
	return nil
}

type sensorValue struct {
	name  string
	value string
}

// sensorValues 未定义的数值发布为空字符串
func sensorValues(snap *models.VehicleSnapshot) []sensorValue {
	values := []sensorValue{
		{"battery_level", strconv.Itoa(snap.BatteryLevel)},
		{"battery_autonomy", strconv.FormatFloat(snap.BatteryAutonomy, 'f', -1, 64)},
		{"plug_status", strconv.Itoa(snap.PlugStatus)},
		{"charging_status", strconv.FormatFloat(snap.ChargingStatus, 'f', -1, 64)},
		{"mileage", strconv.FormatFloat(snap.MileageKm, 'f', -1, 64)},
		{"total_energy", strconv.FormatFloat(snap.Stats.TotalEnergy, 'f', -1, 64)},
		{"max_autonomy_official", optInt(snap.Range.MaxAutonomyOfficial)},
		{"remaining_autonomy_recalculated", optInt(snap.Range.RemainingAutonomyRecalculated)},
		{"max_autonomy_recalculated", optInt(snap.Range.MaxAutonomyRecalculated)},
	}
	if snap.Stats.AvgConsumption != nil {
		values = append(values, sensorValue{"avg_consumption", strconv.FormatFloat(*snap.Stats.AvgConsumption, 'f', -1, 64)})
	} else {
		values = append(values, sensorValue{"avg_consumption", ""})
	}
	return values
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// cleanTopic 替换 MQTT 主题中的非法字符
func cleanTopic(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ReplaceAll(part, " ", "_")
		part = strings.ReplaceAll(part, "+", "plus")
		part = strings.ReplaceAll(part, "#", "hash")
		clean = append(clean, strings.ToLower(part))
	}
	return strings.Join(clean, "/")
}
