package analysis

import (
	"errors"
	"math"

	"github.com/langchou/r5gazer/internal/models"
)

// ErrDegenerateInput 输入退化（电量为 0、里程为 0 等），对应结果为 nil
var ErrDegenerateInput = errors.New("degenerate input")

// 退化原因，写入 RangeEstimate.Degenerate
const (
	DegenerateBatteryLevel   = "battery_level_zero"
	DegenerateAvgConsumption = "avg_consumption_undefined"
)

// AverageConsumption 平均电耗 kWh/100km，保留两位小数；里程不大于 0 时返回 nil
func AverageConsumption(totalEnergy, mileageKm float64) *float64 {
	if mileageKm <= 0 {
		return nil
	}
	avg := roundTo(totalEnergy/(mileageKm/100), 2)
	return &avg
}

// Estimate 计算官方与按平均电耗重算的续航
func Estimate(batteryLevel int, officialAutonomy, usableCapacity float64, avgConsumption *float64) models.RangeEstimate {
	var est models.RangeEstimate

	levelOK := batteryLevel != 0
	if !levelOK {
		est.Degenerate = append(est.Degenerate, DegenerateBatteryLevel)
	} else {
		est.MaxAutonomyOfficial = intPtr(int(math.Round(officialAutonomy * (100 / float64(batteryLevel)))))
	}

	if avgConsumption == nil || *avgConsumption == 0 {
		est.Degenerate = append(est.Degenerate, DegenerateAvgConsumption)
		return est
	}

	remaining := int(math.Floor(float64(batteryLevel) * usableCapacity / *avgConsumption))
	est.RemainingAutonomyRecalculated = intPtr(remaining)

	if levelOK {
		est.MaxAutonomyRecalculated = intPtr(int(math.Round(float64(remaining) * (100 / float64(batteryLevel)))))
	}

	return est
}

// EstimateErr 有退化输入时返回 ErrDegenerateInput
func EstimateErr(est models.RangeEstimate) error {
	if len(est.Degenerate) > 0 {
		return ErrDegenerateInput
	}
	return nil
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
