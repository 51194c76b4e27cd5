// Package analysis 充电记录对账、续航估算与快照组装
//
// 本包全部为纯函数：不做 I/O，不持有全局状态，相同输入必然得到相同输出。
package analysis

import (
	"math"
	"sort"

	"github.com/langchou/r5gazer/internal/models"
	"github.com/langchou/r5gazer/internal/timeutil"
)

// reconcileState 遍历过程中携带的折叠状态
type reconcileState struct {
	previousEndLevel *int
	records          []models.ChargeRecord
	stats            models.ChargeStats
}

func (s *reconcileState) emit(rec models.ChargeRecord) {
	s.records = append(s.records, rec)
	s.stats.SessionCount++
	s.stats.TotalEnergy += rec.EnergyRecovered
}

// Reconcile 清洗 API 返回的充电记录：
//  1. 丢弃能量为 0 的记录
//  2. 按开始时间稳定排序
//  3. 校正异常的起始电量（为 0 或等于结束电量）
//  4. 时长为 0 按 1 分钟计算功率
//  5. 与上一次充电之间出现电量上跳时，在当前记录之前补一条前一天的充电
//
// AvgConsumption 需要里程，由调用方填充。
func Reconcile(raw []models.RawChargeRecord, usableCapacity float64, syntheticDurationMin int) ([]models.ChargeRecord, models.ChargeStats) {
	kept := make([]models.RawChargeRecord, 0, len(raw))
	for _, r := range raw {
		if r.EnergyRecovered == 0 {
			continue
		}
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].StartTime.Before(kept[j].StartTime)
	})

	st := &reconcileState{records: make([]models.ChargeRecord, 0, len(kept))}
	for _, r := range kept {
		rec := correct(r, usableCapacity)

		if st.previousEndLevel != nil && rec.CorrectedStartLevel > *st.previousEndLevel {
			st.emit(synthesize(r, *st.previousEndLevel, rec.CorrectedStartLevel, usableCapacity, syntheticDurationMin))
		}
		st.emit(rec)

		// 使用 API 原始结束电量
		end := r.EndLevel
		st.previousEndLevel = &end
	}

	return st.records, st.stats
}

// correct 计算单条记录的派生字段
func correct(r models.RawChargeRecord, usableCapacity float64) models.ChargeRecord {
	percent := r.EnergyRecovered / usableCapacity * 100

	startLevel := r.StartLevel
	if r.StartLevel == 0 || r.StartLevel == r.EndLevel {
		startLevel = int(math.Round(float64(r.EndLevel) - percent))
	}

	duration := r.DurationMin
	if duration == 0 {
		duration = 1
	}

	return models.ChargeRecord{
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		StartLevel:          r.StartLevel,
		EndLevel:            r.EndLevel,
		CorrectedStartLevel: startLevel,
		EnergyRecovered:     r.EnergyRecovered,
		PercentRecovered:    percent,
		DurationMin:         duration,
		Power:               r.EnergyRecovered / (float64(duration) / 60),
	}
}

// synthesize 构造一条补全的充电，覆盖 from -> to 的电量缺口，时间为触发记录的前一天
func synthesize(trigger models.RawChargeRecord, from, to int, usableCapacity float64, durationMin int) models.ChargeRecord {
	gap := float64(to - from)
	energy := gap / 100 * usableCapacity

	return models.ChargeRecord{
		StartTime:           timeutil.Shift(trigger.StartTime, -1),
		EndTime:             timeutil.Shift(trigger.EndTime, -1),
		StartLevel:          from,
		EndLevel:            to,
		CorrectedStartLevel: from,
		EnergyRecovered:     energy,
		PercentRecovered:    gap,
		DurationMin:         durationMin,
		Power:               energy / (float64(durationMin) / 60),
		Synthetic:           true,
	}
}
