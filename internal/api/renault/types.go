package renault

import "encoding/json"

// Credentials MyRenault 账号
type Credentials struct {
	Email    string
	Password string
}

// gigyaResponse Gigya 接口的公共字段
type gigyaResponse struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`
}

type gigyaLoginResponse struct {
	gigyaResponse
	SessionInfo struct {
		CookieValue string `json:"cookieValue"`
	} `json:"sessionInfo"`
}

type gigyaAccountInfoResponse struct {
	gigyaResponse
	Data struct {
		PersonID        string `json:"personId"`
		GigyaDataCenter string `json:"gigyaDataCenter"`
	} `json:"data"`
}

type gigyaJWTResponse struct {
	gigyaResponse
	IDToken string `json:"id_token"`
}

// Account Kamereon 账户
type Account struct {
	AccountID     string `json:"accountId"`
	AccountType   string `json:"accountType"`
	AccountStatus string `json:"accountStatus"`
}

// Person Kamereon 用户信息
type Person struct {
	PersonID  string    `json:"personId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Accounts  []Account `json:"accounts"`
}

// VehicleLink 账户下关联的车辆
type VehicleLink struct {
	VIN            string `json:"vin"`
	Status         string `json:"status"`
	VehicleDetails struct {
		VIN    string          `json:"vin"`
		Brand  json.RawMessage `json:"brand,omitempty"`
		Model  json.RawMessage `json:"model,omitempty"`
		Assets json.RawMessage `json:"assets,omitempty"`
	} `json:"vehicleDetails"`
}

type vehiclesResponse struct {
	AccountID    string        `json:"accountId"`
	VehicleLinks []VehicleLink `json:"vehicleLinks"`
}

// kcaResponse car-adapter 接口外层结构
type kcaResponse struct {
	Data struct {
		Type       string          `json:"type"`
		ID         string          `json:"id"`
		Attributes json.RawMessage `json:"attributes"`
	} `json:"data"`
}

// BatteryStatusAttributes battery-status 接口
type BatteryStatusAttributes struct {
	Timestamp             string   `json:"timestamp"`
	BatteryLevel          float64  `json:"batteryLevel"`
	BatteryAutonomy       float64  `json:"batteryAutonomy"`
	PlugStatus            float64  `json:"plugStatus"`
	ChargingStatus        float64  `json:"chargingStatus"`
	ChargingRemainingTime *float64 `json:"chargingRemainingTime,omitempty"`
}

// CockpitAttributes cockpit 接口
type CockpitAttributes struct {
	TotalMileage float64 `json:"totalMileage"` // km
}

// LocationAttributes location 接口
type LocationAttributes struct {
	GPSLatitude    float64 `json:"gpsLatitude"`
	GPSLongitude   float64 `json:"gpsLongitude"`
	LastUpdateTime string  `json:"lastUpdateTime"`
}

// Charge charges 接口中的一次充电
type Charge struct {
	ChargeStartDate         string  `json:"chargeStartDate"`
	ChargeEndDate           string  `json:"chargeEndDate"`
	ChargeDuration          float64 `json:"chargeDuration"` // 分钟
	ChargeStartBatteryLevel float64 `json:"chargeStartBatteryLevel"`
	ChargeEndBatteryLevel   float64 `json:"chargeEndBatteryLevel"`
	ChargeEnergyRecovered   float64 `json:"chargeEnergyRecovered"` // kWh
	ChargeEndStatus         string  `json:"chargeEndStatus,omitempty"`
}

// ChargesAttributes charges 接口
type ChargesAttributes struct {
	Charges []Charge `json:"charges"`
}
