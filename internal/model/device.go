package model

// DeviceStub is the minimal device record returned by the list and search
// endpoints. The ID is the fetch key for detail enrichment.
type DeviceStub struct {
	ID           int    `json:"id"`
	Name         string `json:"name,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	UDID         string `json:"udid,omitempty"`
	AssetTag     string `json:"assetTag,omitempty"`
}

// DeviceDetail is the full nested device record. It stays a generic
// mapping because the server is free to add fields and the flatten
// projection copies whatever scalars it finds.
type DeviceDetail map[string]any

// String returns the named field as a string, or "" when it is absent
// or not a string.
func (d DeviceDetail) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Int returns the named field as an int. JSON numbers decode as float64.
func (d DeviceDetail) Int(field string) int {
	f, _ := d[field].(float64)
	return int(f)
}

// SearchCriteria holds the attribute match terms for a device search.
// At least one must be set.
type SearchCriteria struct {
	Serial   string
	Name     string
	UDID     string
	AssetTag string
}

// Empty reports whether no criterion is set.
func (sc SearchCriteria) Empty() bool {
	return sc.Serial == "" && sc.Name == "" && sc.UDID == "" && sc.AssetTag == ""
}
