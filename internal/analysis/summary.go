package analysis

import (
	"sort"

	"github.com/langchou/r5gazer/internal/models"
)

// Summarize 计算充电表格的合计行
func Summarize(records []models.ChargeRecord) models.ChargeSummary {
	var sum models.ChargeSummary
	for _, r := range records {
		sum.TotalEnergy += r.EnergyRecovered
		sum.TotalPercent += r.PercentRecovered
		sum.TotalHours += r.DurationHours()
		if r.Synthetic {
			sum.SyntheticRows++
		}
	}
	if sum.TotalHours > 0 {
		sum.AveragePower = floatPtr(sum.TotalEnergy / sum.TotalHours)
	}
	return sum
}

// ChronologicalRows 按开始时间升序编号 1..n
// 补录记录的时间比触发记录早一天，可能排到上一次充电之前
func ChronologicalRows(records []models.ChargeRecord) []models.ChargeRow {
	sorted := make([]models.ChargeRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	rows := make([]models.ChargeRow, len(sorted))
	for i, r := range sorted {
		rows[i] = models.ChargeRow{Number: i + 1, Record: r}
	}
	return rows
}

// DisplayOrder 最新的充电排在最前，编号从 n 递减到 1
func DisplayOrder(records []models.ChargeRecord) []models.ChargeRow {
	rows := ChronologicalRows(records)
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows
}

// BatteryCurve 每次充电的起止电量点，按时间升序
func BatteryCurve(records []models.ChargeRecord) []models.LevelPoint {
	points := make([]models.LevelPoint, 0, len(records)*2)
	for _, r := range records {
		points = append(points,
			models.LevelPoint{Time: r.StartTime, Level: r.CorrectedStartLevel},
			models.LevelPoint{Time: r.EndTime, Level: r.EndLevel},
		)
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points
}
