package renault

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/r5gazer/internal/models"
	"github.com/langchou/r5gazer/internal/timeutil"
)

// accountTypeMyRenault 只使用 MYRENAULT 类型的账户
const accountTypeMyRenault = "MYRENAULT"

// Fetch 抓取第一辆车的电池、里程、位置和 [start, end] 内的充电记录
func (c *Client) Fetch(ctx context.Context, creds Credentials, start, end time.Time) (*models.VehicleBatch, error) {
	person, err := c.GetPerson(ctx, creds)
	if err != nil {
		return nil, err
	}

	accountID := ""
	for _, acc := range person.Accounts {
		if acc.AccountType == accountTypeMyRenault {
			accountID = acc.AccountID
			break // 一般只有一个
		}
	}
	if accountID == "" {
		return nil, ErrNoAccount
	}

	links, err := c.GetVehicles(ctx, creds, accountID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, ErrNoVehicle
	}
	link := links[0]
	vin := link.VIN
	if vin == "" {
		vin = link.VehicleDetails.VIN
	}

	batch := &models.VehicleBatch{
		VIN:    vin,
		Assets: link.VehicleDetails.Assets,
	}

	battery, err := c.GetBatteryStatus(ctx, creds, accountID, vin)
	if err != nil {
		return nil, err
	}
	if batch.Battery, err = convertBattery(battery); err != nil {
		return nil, fmt.Errorf("battery-status: %w", err)
	}

	cockpit, err := c.GetCockpit(ctx, creds, accountID, vin)
	if err != nil {
		return nil, err
	}
	batch.MileageKm = cockpit.TotalMileage

	location, err := c.GetLocation(ctx, creds, accountID, vin)
	switch {
	case errors.Is(err, ErrNotSupported):
		c.logger.Warn("Location not available for vehicle", zap.String("vin", vin))
	case err != nil:
		return nil, err
	default:
		if batch.GPS, err = convertLocation(location); err != nil {
			return nil, fmt.Errorf("location: %w", err)
		}
	}

	charges, err := c.GetCharges(ctx, creds, accountID, vin, start, end)
	if err != nil {
		return nil, err
	}
	if batch.Charges, err = convertCharges(charges); err != nil {
		return nil, fmt.Errorf("charges: %w", err)
	}

	c.logger.Debug("Fetched vehicle data",
		zap.String("vin", vin),
		zap.Int("battery_level", batch.Battery.BatteryLevel),
		zap.Int("charges", len(batch.Charges)),
	)

	return batch, nil
}

func convertBattery(a *BatteryStatusAttributes) (models.BatteryStatus, error) {
	bs := models.BatteryStatus{
		BatteryLevel:    roundInt(a.BatteryLevel),
		BatteryAutonomy: a.BatteryAutonomy,
		PlugStatus:      roundInt(a.PlugStatus),
		ChargingStatus:  a.ChargingStatus,
	}
	if a.ChargingRemainingTime != nil {
		remaining := roundInt(*a.ChargingRemainingTime)
		bs.ChargingRemainingTime = &remaining
	}
	if a.Timestamp != "" {
		ts, err := timeutil.ParseInstant(a.Timestamp)
		if err != nil {
			return bs, err
		}
		bs.Timestamp = ts
	}
	return bs, nil
}

func convertLocation(a *LocationAttributes) (models.GPS, error) {
	gps := models.GPS{
		Latitude:  a.GPSLatitude,
		Longitude: a.GPSLongitude,
	}
	if a.LastUpdateTime != "" {
		ts, err := timeutil.ParseInstant(a.LastUpdateTime)
		if err != nil {
			return gps, err
		}
		gps.UpdatedAt = &ts
	}
	return gps, nil
}

func convertCharges(charges []Charge) ([]models.RawChargeRecord, error) {
	records := make([]models.RawChargeRecord, 0, len(charges))
	for _, ch := range charges {
		start, err := timeutil.ParseInstant(ch.ChargeStartDate)
		if err != nil {
			return nil, err
		}
		end, err := timeutil.ParseInstant(ch.ChargeEndDate)
		if err != nil {
			return nil, err
		}
		records = append(records, models.RawChargeRecord{
			StartTime:       start,
			EndTime:         end,
			StartLevel:      roundInt(ch.ChargeStartBatteryLevel),
			EndLevel:        roundInt(ch.ChargeEndBatteryLevel),
			EnergyRecovered: ch.ChargeEnergyRecovered,
			DurationMin:     roundInt(ch.ChargeDuration),
		})
	}
	return records, nil
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
