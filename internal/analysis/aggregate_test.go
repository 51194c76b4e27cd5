package analysis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/r5gazer/internal/models"
)

func testBatch() *models.VehicleBatch {
	remaining := 45
	return &models.VehicleBatch{
		VIN: "VF1AAAAA555777999",
		Battery: models.BatteryStatus{
			Timestamp:             time.Date(2025, 8, 6, 12, 24, 6, 0, time.UTC),
			BatteryLevel:          50,
			BatteryAutonomy:       150,
			PlugStatus:            models.PlugPlugged,
			ChargingStatus:        models.ChargingStatusCharging,
			ChargingRemainingTime: &remaining,
		},
		MileageKm: 200,
		Charges: []models.RawChargeRecord{
			session(0, 10, 60, 26, 120),
			session(2, 60, 70, 5.2, 60),
		},
		GPS:    models.GPS{Latitude: 48.8566, Longitude: 2.3522},
		Assets: json.RawMessage(`[{"assetType":"PICTURE"}]`),
	}
}

func TestAggregate(t *testing.T) {
	now := time.Date(2025, 8, 6, 13, 0, 0, 0, time.UTC)
	snap, err := Aggregate(testBatch(), AggregateOptions{UsableCapacity: 52, SyntheticChargeDuration: 359, Now: now})
	require.NoError(t, err)

	assert.Equal(t, "VF1AAAAA555777999", snap.VIN)
	assert.Equal(t, 52.0, snap.UsableCapacity)
	assert.Equal(t, "Mer. 06/08 à 14h24:06", snap.LastUpdate)
	assert.Equal(t, 50, snap.BatteryLevel)
	assert.InDelta(t, 26.0, snap.BatteryEnergy(), 1e-9)
	assert.Equal(t, 2, snap.Stats.SessionCount)
	assert.InDelta(t, 31.2, snap.Stats.TotalEnergy, 1e-9)

	// 31.2 kWh / 2 (x100km) = 15.6
	require.NotNil(t, snap.Stats.AvgConsumption)
	assert.Equal(t, 15.6, *snap.Stats.AvgConsumption)

	require.NotNil(t, snap.Range.MaxAutonomyOfficial)
	assert.Equal(t, 300, *snap.Range.MaxAutonomyOfficial)
	require.NotNil(t, snap.Range.RemainingAutonomyRecalculated)
	assert.Equal(t, 166, *snap.Range.RemainingAutonomyRecalculated)
	assert.Equal(t, 332, *snap.Range.MaxAutonomyRecalculated)

	assert.Equal(t, 48.8566, snap.GPS.Latitude)
	assert.Equal(t, 45, *snap.ChargingRemainingTime)
	assert.JSONEq(t, `[{"assetType":"PICTURE"}]`, string(snap.Assets))
	assert.Equal(t, now, snap.FetchedAt)
	assert.Len(t, snap.Charges, 2)
}

func TestAggregateZeroMileage(t *testing.T) {
	batch := testBatch()
	batch.MileageKm = 0

	snap, err := Aggregate(batch, AggregateOptions{UsableCapacity: 52, SyntheticChargeDuration: 359})
	require.NoError(t, err)
	assert.Nil(t, snap.Stats.AvgConsumption)
	assert.Nil(t, snap.Range.RemainingAutonomyRecalculated)
	assert.Contains(t, snap.Range.Degenerate, DegenerateAvgConsumption)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"avg_consumption":null`)
}

func TestAggregateNilBatch(t *testing.T) {
	_, err := Aggregate(nil, AggregateOptions{UsableCapacity: 52, SyntheticChargeDuration: 359})
	assert.Error(t, err)
}

func TestAggregateAvgConsumptionIncludesSyntheticEnergy(t *testing.T) {
	batch := testBatch()
	// 60 -> 80 的缺口补录 10.4 kWh
	batch.Charges = []models.RawChargeRecord{
		session(0, 10, 60, 26, 120),
		session(2, 80, 90, 5.2, 60),
	}

	snap, err := Aggregate(batch, AggregateOptions{UsableCapacity: 52, SyntheticChargeDuration: 359})
	require.NoError(t, err)
	require.Len(t, snap.Charges, 3)
	assert.InDelta(t, 41.6, snap.Stats.TotalEnergy, 1e-9)

	// 41.6 kWh / 2 (x100km)，不是只算 API 记录的 31.2 / 2
	require.NotNil(t, snap.Stats.AvgConsumption)
	assert.InDelta(t, 20.8, *snap.Stats.AvgConsumption, 1e-9)
}
