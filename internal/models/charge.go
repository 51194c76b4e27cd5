package models

import "time"

// RawChargeRecord 车辆 API 返回的一次充电记录（未经校正）
type RawChargeRecord struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	StartLevel      int       `json:"start_level"`      // %
	EndLevel        int       `json:"end_level"`        // %
	EnergyRecovered float64   `json:"energy_recovered"` // kWh，0 表示无效充电
	DurationMin     int       `json:"duration_min"`     // 可能为 0（数据缺陷）
}

// ChargeRecord 对账后的充电记录
type ChargeRecord struct {
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	StartLevel          int       `json:"start_level"` // API 原始值
	EndLevel            int       `json:"end_level"`
	CorrectedStartLevel int       `json:"corrected_start_level"`
	EnergyRecovered     float64   `json:"energy_recovered"`  // kWh
	PercentRecovered    float64   `json:"percent_recovered"` // %
	DurationMin         int       `json:"duration_min"`      // >= 1
	Power               float64   `json:"power"`             // kW
	Synthetic           bool      `json:"synthetic"`         // API 漏报、由对账补全的充电
}

// DurationHours 充电时长（小时）
func (c ChargeRecord) DurationHours() float64 {
	return float64(c.DurationMin) / 60
}

// ChargeStats 充电汇总统计
type ChargeStats struct {
	SessionCount   int      `json:"session_count"`
	TotalEnergy    float64  `json:"total_energy"`    // kWh，含补全记录
	AvgConsumption *float64 `json:"avg_consumption"` // kWh/100km，里程为 0 时为 nil
}

// ChargeSummary 充电表格的合计行
type ChargeSummary struct {
	TotalEnergy   float64  `json:"total_energy"`    // kWh
	TotalPercent  float64  `json:"total_percent"`   // %
	TotalHours    float64  `json:"total_hours"`     // h
	AveragePower  *float64 `json:"average_power"`   // kW，总时长为 0 时为 nil
	SyntheticRows int      `json:"synthetic_count"` // 补全记录数
}

// ChargeRow 展示用的充电行（倒序编号）
type ChargeRow struct {
	Number int          `json:"number"`
	Record ChargeRecord `json:"record"`
}

// LevelPoint 电量曲线上的一个点
type LevelPoint struct {
	Time  time.Time `json:"time"`
	Level int       `json:"level"`
}
