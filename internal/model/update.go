package model

// DeviceUpdate enumerates the recognized updatable device fields and maps
// them to the patch shape the update endpoint expects. Zero values are
// omitted; EnforceName is a pointer so false can be sent explicitly.
type DeviceUpdate struct {
	Name        string
	AssetTag    string
	EnforceName *bool
	Location    *LocationUpdate
}

// LocationUpdate is the location block of a device update.
type LocationUpdate struct {
	Building     string `json:"building,omitempty"`
	Department   string `json:"department,omitempty"`
	Room         string `json:"room,omitempty"`
	Username     string `json:"username,omitempty"`
	RealName     string `json:"realName,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Position     string `json:"position,omitempty"`
}

// Payload builds the JSON patch body. It returns nil when no field is set.
func (u DeviceUpdate) Payload() map[string]any {
	payload := map[string]any{}
	if u.Name != "" {
		payload["name"] = u.Name
	}
	if u.AssetTag != "" {
		payload["assetTag"] = u.AssetTag
	}
	if u.EnforceName != nil {
		payload["enforceName"] = *u.EnforceName
	}
	if u.Location != nil {
		payload["location"] = u.Location
	}
	if len(payload) == 0 {
		return nil
	}
	return payload
}
