package models

// Address 结构化地址信息（逆地理编码结果）
type Address struct {
	FormattedAddress string `json:"formatted_address,omitempty"` // 完整格式化地址
	Country          string `json:"country,omitempty"`
	Region           string `json:"region,omitempty"` // 大区，如 Île-de-France
	City             string `json:"city,omitempty"`
	Postcode         string `json:"postcode,omitempty"`
	Street           string `json:"street,omitempty"`
	HouseNumber      string `json:"house_number,omitempty"`
}

// Short 返回适合单行展示的地址
func (a *Address) Short() string {
	if a == nil {
		return ""
	}
	switch {
	case a.Street != "" && a.City != "":
		if a.HouseNumber != "" {
			return a.HouseNumber + " " + a.Street + ", " + a.City
		}
		return a.Street + ", " + a.City
	case a.City != "":
		return a.City
	default:
		return a.FormattedAddress
	}
}
