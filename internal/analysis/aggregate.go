package analysis

import (
	"errors"
	"time"

	"github.com/langchou/r5gazer/internal/models"
	"github.com/langchou/r5gazer/internal/timeutil"
)

// AggregateOptions 组装快照所需的配置
type AggregateOptions struct {
	UsableCapacity          float64 // kWh
	SyntheticChargeDuration int     // 分钟
	Now                     time.Time
}

// Aggregate 将原始数据对账、估算后组装为 VehicleSnapshot
func Aggregate(batch *models.VehicleBatch, opts AggregateOptions) (*models.VehicleSnapshot, error) {
	if batch == nil {
		return nil, errors.New("aggregate: nil batch")
	}

	charges, stats := Reconcile(batch.Charges, opts.UsableCapacity, opts.SyntheticChargeDuration)
	// 平均电耗按含补录记录的总能量计算
	stats.AvgConsumption = AverageConsumption(stats.TotalEnergy, batch.MileageKm)

	battery := batch.Battery
	est := Estimate(battery.BatteryLevel, battery.BatteryAutonomy, opts.UsableCapacity, stats.AvgConsumption)

	snap := &models.VehicleSnapshot{
		VIN:                   batch.VIN,
		UsableCapacity:        opts.UsableCapacity,
		BatteryTimestamp:      battery.Timestamp,
		BatteryLevel:          battery.BatteryLevel,
		BatteryAutonomy:       battery.BatteryAutonomy,
		Range:                 est,
		PlugStatus:            battery.PlugStatus,
		ChargingStatus:        battery.ChargingStatus,
		ChargingRemainingTime: battery.ChargingRemainingTime,
		MileageKm:             batch.MileageKm,
		Stats:                 stats,
		GPS:                   batch.GPS,
		Charges:               charges,
		Assets:                batch.Assets,
		FetchedAt:             opts.Now,
	}
	if !battery.Timestamp.IsZero() {
		snap.LastUpdate = timeutil.FormatLocal(battery.Timestamp)
	}

	return snap, nil
}
