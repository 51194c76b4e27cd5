package ui

import (
	"fmt"

	"github.com/langchou/r5gazer/internal/models"
)

// NA 未定义值的显示文本
const NA = "N/A"

// PlugLabel 插枪状态
func PlugLabel(status int) string {
	if status == models.PlugPlugged {
		return "Branchée"
	}
	return "Débranchée"
}

// ChargingLabel 充电状态
func ChargingLabel(status float64) string {
	switch status {
	case models.ChargingStatusNotCharging:
		return "Pas en charge"
	case models.ChargingStatusWaiting:
		return "Charge planifiée"
	case models.ChargingStatusCharging:
		return "En charge"
	default:
		return "Inconnu"
	}
}

func formatIntPtr(v *int) string {
	if v == nil {
		return NA
	}
	return fmt.Sprintf("%d", *v)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return NA
	}
	return fmt.Sprintf("%g", *v)
}

// formatNumber 整数不带小数，其余保留原精度
func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}
