package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/r5gazer/internal/models"
)

const (
	testCapacity = 52.0
	testDuration = 359
)

var day0 = time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)

func session(dayOffset int, start, end int, energy float64, duration int) models.RawChargeRecord {
	begin := day0.Add(time.Duration(dayOffset) * 24 * time.Hour)
	return models.RawChargeRecord{
		StartTime:       begin,
		EndTime:         begin.Add(time.Duration(duration) * time.Minute),
		StartLevel:      start,
		EndLevel:        end,
		EnergyRecovered: energy,
		DurationMin:     duration,
	}
}

func TestReconcileSingleSession(t *testing.T) {
	out, stats := Reconcile([]models.RawChargeRecord{session(0, 10, 60, 26, 120)}, testCapacity, testDuration)

	require.Len(t, out, 1)
	rec := out[0]
	assert.False(t, rec.Synthetic)
	assert.InDelta(t, 50.0, rec.PercentRecovered, 1e-9)
	assert.InDelta(t, 13.0, rec.Power, 1e-9)
	assert.Equal(t, 10, rec.CorrectedStartLevel)
	assert.Equal(t, 1, stats.SessionCount)
	assert.InDelta(t, 26.0, stats.TotalEnergy, 1e-9)
	assert.Nil(t, stats.AvgConsumption)
}

func TestReconcileInsertsSyntheticSessionForGap(t *testing.T) {
	first := session(0, 10, 60, 26, 120)
	second := session(1, 80, 90, 5.2, 60)
	second.StartTime = second.StartTime.Add(10 * time.Hour)
	second.EndTime = second.EndTime.Add(10 * time.Hour)

	out, stats := Reconcile([]models.RawChargeRecord{second, first}, testCapacity, testDuration)

	require.Len(t, out, 3)
	assert.False(t, out[0].Synthetic)
	assert.Equal(t, first.StartTime, out[0].StartTime)

	synth := out[1]
	assert.True(t, synth.Synthetic)
	assert.Equal(t, 60, synth.StartLevel)
	assert.Equal(t, 60, synth.CorrectedStartLevel)
	assert.Equal(t, 80, synth.EndLevel)
	assert.InDelta(t, 20.0, synth.PercentRecovered, 1e-9)
	assert.InDelta(t, 10.4, synth.EnergyRecovered, 1e-9)
	assert.Equal(t, testDuration, synth.DurationMin)
	assert.InDelta(t, 10.4/(359.0/60), synth.Power, 1e-9)
	assert.Equal(t, second.StartTime.Add(-24*time.Hour), synth.StartTime)
	assert.Equal(t, second.EndTime.Add(-24*time.Hour), synth.EndTime)

	assert.False(t, out[2].Synthetic)
	assert.Equal(t, 80, out[2].CorrectedStartLevel)
	assert.Equal(t, 90, out[2].EndLevel)

	assert.Equal(t, 3, stats.SessionCount)
	assert.InDelta(t, 26+10.4+5.2, stats.TotalEnergy, 1e-9)
}

func TestReconcileCorrectsDefectiveStartLevel(t *testing.T) {
	out, _ := Reconcile([]models.RawChargeRecord{session(0, 40, 40, 5.2, 30)}, testCapacity, testDuration)
	require.Len(t, out, 1)
	assert.Equal(t, 30, out[0].CorrectedStartLevel)
	assert.Equal(t, 40, out[0].StartLevel)

	out, _ = Reconcile([]models.RawChargeRecord{session(0, 0, 75, 13, 30)}, testCapacity, testDuration)
	require.Len(t, out, 1)
	assert.Equal(t, 50, out[0].CorrectedStartLevel)
}

func TestReconcileZeroDurationCountsAsOneMinute(t *testing.T) {
	out, _ := Reconcile([]models.RawChargeRecord{session(0, 50, 51, 0.5, 0)}, testCapacity, testDuration)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].DurationMin)
	assert.InDelta(t, 30.0, out[0].Power, 1e-9)
}

func TestReconcileDiscardsEmptySessions(t *testing.T) {
	raw := []models.RawChargeRecord{
		session(0, 20, 50, 15.6, 90),
		session(1, 50, 95, 0, 200), // 能量为 0，不参与对账
		session(3, 50, 70, 10.4, 60),
	}

	out, stats := Reconcile(raw, testCapacity, testDuration)
	require.Len(t, out, 2)
	for _, r := range out {
		assert.NotZero(t, r.EnergyRecovered)
		assert.False(t, r.Synthetic)
	}
	assert.Equal(t, 2, stats.SessionCount)
}

func TestReconcileEmptyInput(t *testing.T) {
	out, stats := Reconcile(nil, testCapacity, testDuration)
	assert.Empty(t, out)
	assert.Equal(t, 0, stats.SessionCount)
	assert.Equal(t, 0.0, stats.TotalEnergy)

	out, stats = Reconcile([]models.RawChargeRecord{session(0, 10, 10, 0, 0)}, testCapacity, testDuration)
	assert.Empty(t, out)
	assert.Equal(t, 0, stats.SessionCount)
}

func TestReconcileEqualLevelsDoNotTriggerSynthetic(t *testing.T) {
	raw := []models.RawChargeRecord{
		session(0, 20, 60, 20.8, 120),
		session(2, 60, 80, 10.4, 60),
	}
	out, _ := Reconcile(raw, testCapacity, testDuration)
	assert.Len(t, out, 2)
}

func TestReconcileUsesRawEndLevelAsPrevious(t *testing.T) {
	// 第一条结束于 50；第二条起始 55 触发 5% 的补全
	raw := []models.RawChargeRecord{
		session(0, 0, 50, 13, 60),
		session(2, 55, 60, 2.6, 30),
	}
	out, _ := Reconcile(raw, testCapacity, testDuration)
	require.Len(t, out, 3)
	assert.Equal(t, 25, out[0].CorrectedStartLevel)
	assert.True(t, out[1].Synthetic)
	assert.Equal(t, 50, out[1].StartLevel)
	assert.Equal(t, 55, out[1].EndLevel)
}

func TestReconcileIsDeterministicForTies(t *testing.T) {
	a := session(0, 10, 30, 10.4, 60)
	b := session(0, 30, 40, 5.2, 60)
	b.StartTime = a.StartTime

	out1, _ := Reconcile([]models.RawChargeRecord{a, b}, testCapacity, testDuration)
	out2, _ := Reconcile([]models.RawChargeRecord{a, b}, testCapacity, testDuration)
	assert.Equal(t, out1, out2)
	require.Len(t, out1, 2)
	assert.Equal(t, 10, out1[0].StartLevel)
	assert.Equal(t, 30, out1[1].StartLevel)
}

func history() []models.RawChargeRecord {
	return []models.RawChargeRecord{
		session(12, 70, 80, 5.2, 300), // 上跳 55 -> 70
		session(0, 15, 60, 23.4, 240),
		session(3, 70, 95, 13, 120), // 上跳 60 -> 70
		session(6, 40, 40, 7.8, 0),  // 起始电量异常，校正为 25
		session(9, 0, 55, 15.6, 180),
	}
}

func TestReconcileProperties(t *testing.T) {
	out, stats := Reconcile(history(), testCapacity, testDuration)

	synthetic := 0
	total := 0.0
	for i, r := range out {
		total += r.EnergyRecovered
		assert.NotZero(t, r.EnergyRecovered)
		if r.Synthetic {
			synthetic++
			require.Less(t, i+1, len(out))
			assert.Equal(t, out[i+1].StartTime.Add(-24*time.Hour), r.StartTime)
			assert.False(t, out[i+1].Synthetic)
		}
		if i > 0 {
			assert.False(t, r.StartTime.Before(out[i-1].StartTime), "output must be ordered by start time")
			assert.LessOrEqual(t, r.CorrectedStartLevel, out[i-1].EndLevel, "unexplained gap at %d", i)
		}
	}

	assert.Equal(t, len(out), stats.SessionCount)
	assert.Equal(t, total, stats.TotalEnergy)
	assert.Equal(t, 2, synthetic)
}

func TestReconcileIsIdempotent(t *testing.T) {
	out, _ := Reconcile(history(), testCapacity, testDuration)

	again := make([]models.RawChargeRecord, 0, len(out))
	for _, r := range out {
		again = append(again, models.RawChargeRecord{
			StartTime:       r.StartTime,
			EndTime:         r.EndTime,
			StartLevel:      r.CorrectedStartLevel,
			EndLevel:        r.EndLevel,
			EnergyRecovered: r.EnergyRecovered,
			DurationMin:     r.DurationMin,
		})
	}

	second, stats := Reconcile(again, testCapacity, testDuration)
	assert.Len(t, second, len(out))
	for _, r := range second {
		assert.False(t, r.Synthetic)
	}
	assert.Equal(t, len(out), stats.SessionCount)
}
