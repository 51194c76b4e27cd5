package models

import (
	"encoding/json"
	"time"
)

// 插枪状态
const (
	PlugUnplugged = 0
	PlugPlugged   = 1
)

// 充电状态（Renault 使用浮点编码）
const (
	ChargingStatusNotCharging = 0.0
	ChargingStatusWaiting     = 0.1 // 预约充电
	ChargingStatusCharging    = 1.0
)

// BatteryStatus 电池状态（battery-status 接口原始字段）
type BatteryStatus struct {
	Timestamp             time.Time `json:"timestamp"`
	BatteryLevel          int       `json:"battery_level"`    // %
	BatteryAutonomy       float64   `json:"battery_autonomy"` // km，官方续航
	PlugStatus            int       `json:"plug_status"`
	ChargingStatus        float64   `json:"charging_status"`
	ChargingRemainingTime *int      `json:"charging_remaining_time,omitempty"` // 分钟
}

// GPS 车辆位置
type GPS struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// VehicleBatch 一次抓取得到的全部原始数据
type VehicleBatch struct {
	VIN       string            `json:"vin"`
	Battery   BatteryStatus     `json:"battery"`
	MileageKm float64           `json:"mileage_km"`
	Charges   []RawChargeRecord `json:"charges"`
	GPS       GPS               `json:"gps"`
	Assets    json.RawMessage   `json:"assets,omitempty"` // 透传
}

// RangeEstimate 续航估算，nil 表示输入退化无法计算
type RangeEstimate struct {
	MaxAutonomyOfficial           *int     `json:"max_autonomy_official"`
	RemainingAutonomyRecalculated *int     `json:"remaining_autonomy_recalculated"`
	MaxAutonomyRecalculated       *int     `json:"max_autonomy_recalculated"`
	Degenerate                    []string `json:"degenerate,omitempty"`
}

// VehicleSnapshot 展示层使用的完整车辆快照
type VehicleSnapshot struct {
	VIN                   string          `json:"vin"`
	UsableCapacity        float64         `json:"usable_capacity"` // kWh
	LastUpdate            string          `json:"last_update"`
	BatteryTimestamp      time.Time       `json:"battery_timestamp"`
	BatteryLevel          int             `json:"battery_level"`
	BatteryAutonomy       float64         `json:"battery_autonomy"`
	Range                 RangeEstimate   `json:"range"`
	PlugStatus            int             `json:"plug_status"`
	ChargingStatus        float64         `json:"charging_status"`
	ChargingRemainingTime *int            `json:"charging_remaining_time"`
	MileageKm             float64         `json:"mileage_km"`
	Stats                 ChargeStats     `json:"charge_stats"`
	GPS                   GPS             `json:"gps"`
	Address               *Address        `json:"address,omitempty"`
	Charges               []ChargeRecord  `json:"charge_history"`
	Assets                json.RawMessage `json:"assets,omitempty"`
	FetchedAt             time.Time       `json:"fetched_at"`
}

// BatteryEnergy 当前电量对应的能量 (kWh)
func (s *VehicleSnapshot) BatteryEnergy() float64 {
	return float64(s.BatteryLevel) * s.UsableCapacity / 100
}
