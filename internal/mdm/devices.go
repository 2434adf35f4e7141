package mdm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/model"
)

// ListDevices returns the device stubs from a single paged list call.
func (c *Client) ListDevices(ctx context.Context, pageSize int) ([]model.DeviceStub, error) {
	endpoint := mobileDeviceEndpoint
	if pageSize > 0 {
		endpoint = fmt.Sprintf("%s?pageSize=%d", mobileDeviceEndpoint, pageSize)
	}
	resp, err := c.restDo(ctx, c.rest, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Status: resp.StatusCode, Endpoint: mobileDeviceEndpoint}
	}
	var stubs []model.DeviceStub
	if err := json.NewDecoder(resp.Body).Decode(&stubs); err != nil {
		return nil, fmt.Errorf("decoding device list: %w", err)
	}
	return stubs, nil
}

// GetDevice fetches one device record, the full detail record when
// detailed is set. Any status >= 400 means no record (nil, nil) rather
// than an error; the server answers soft 404s with errors on this
// endpoint and callers probe with ids that may have been retired.
func (c *Client) GetDevice(ctx context.Context, id int, detailed bool) (model.DeviceDetail, error) {
	return c.fetchDevice(ctx, c.rest, id, detailed)
}

func (c *Client) fetchDevice(ctx context.Context, hc *http.Client, id int, detailed bool) (model.DeviceDetail, error) {
	endpoint := fmt.Sprintf("%s/%d", mobileDeviceEndpoint, id)
	if detailed {
		endpoint += "/detail"
	}
	resp, err := c.restDo(ctx, hc, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching device %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		log.Debug("Device not found", "id", id, "status", resp.StatusCode)
		return nil, nil
	}
	var detail model.DeviceDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("decoding device %d: %w", id, err)
	}
	return detail, nil
}

// DeviceSerial resolves a device id to its serial number.
func (c *Client) DeviceSerial(ctx context.Context, id int) (string, error) {
	device, err := c.GetDevice(ctx, id, false)
	if err != nil {
		return "", err
	}
	if device == nil {
		return "", fmt.Errorf("device %d: %w", id, ErrNotFound)
	}
	serial := device.String("serialNumber")
	if serial == "" {
		return "", &IncompleteRecordError{DeviceID: id, Field: "serialNumber"}
	}
	return serial, nil
}

// SearchDevices matches devices by attribute. At least one criterion is
// required; zero matches is an error because every caller passes values
// it believes identify a device.
func (c *Client) SearchDevices(ctx context.Context, criteria model.SearchCriteria) ([]model.DeviceStub, error) {
	if criteria.Empty() {
		return nil, ErrInvalidQuery
	}

	params := map[string]any{
		"pageNumber": 0,
		"pageSize":   100,
	}
	if criteria.Name != "" {
		params["name"] = criteria.Name
	}
	if criteria.Serial != "" {
		params["serialNumber"] = criteria.Serial
	}
	if criteria.UDID != "" {
		params["udid"] = criteria.UDID
	}
	if criteria.AssetTag != "" {
		params["assetTag"] = criteria.AssetTag
	}

	resp, err := c.restDo(ctx, c.rest, http.MethodPost, searchDeviceEndpoint, params)
	if err != nil {
		return nil, fmt.Errorf("searching devices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Status: resp.StatusCode, Endpoint: searchDeviceEndpoint}
	}
	var payload struct {
		TotalCount int                `json:"totalCount"`
		Results    []model.DeviceStub `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding search results: %w", err)
	}
	if payload.TotalCount == 0 {
		return nil, fmt.Errorf("%w for serial=%q name=%q udid=%q assetTag=%q",
			ErrNotFound, criteria.Serial, criteria.Name, criteria.UDID, criteria.AssetTag)
	}
	return payload.Results, nil
}

// UpdateDevice sends a partial update built from the recognized fields.
func (c *Client) UpdateDevice(ctx context.Context, id int, update model.DeviceUpdate) error {
	payload := update.Payload()
	if payload == nil {
		return fmt.Errorf("%w: nothing to update", ErrInvalidArgument)
	}

	endpoint := fmt.Sprintf("%s/%d/update", mobileDeviceEndpoint, id)
	resp, err := c.restDo(ctx, c.rest, http.MethodPost, endpoint, payload)
	if err != nil {
		return fmt.Errorf("updating device %d: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Status: resp.StatusCode, Endpoint: endpoint}
	}
	return nil
}

// SetDeviceRoom moves a device to the named room.
func (c *Client) SetDeviceRoom(ctx context.Context, id int, room string) error {
	return c.UpdateDevice(ctx, id, model.DeviceUpdate{Location: &model.LocationUpdate{Room: room}})
}

// DeleteDevice removes a device record through the legacy API. Success
// is 200.
func (c *Client) DeleteDevice(ctx context.Context, id int) error {
	path := fmt.Sprintf("mobiledevices/id/%d", id)
	resp, err := c.classicDo(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("deleting device %d: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Status: resp.StatusCode, Endpoint: path}
	}
	log.Info("Device deleted", "id", id)
	return nil
}

// Flatten projects a nested detail record onto a single-level mapping:
// top-level scalars verbatim, location scalars as location_<field>,
// name-bearing location sub-objects as location_<field>_name, platform
// block scalars verbatim plus a derived application_count, and network
// sub-fields as network_<field>. The input is not modified.
func Flatten(detail model.DeviceDetail) map[string]any {
	flat := map[string]any{}
	for k, v := range detail {
		if isScalar(v) {
			flat[k] = v
		}
	}

	if location, ok := detail["location"].(map[string]any); ok {
		for k, v := range location {
			if isScalar(v) {
				flat["location_"+k] = v
				continue
			}
			if sub, ok := v.(map[string]any); ok {
				if name, ok := sub["name"]; ok && isScalar(name) {
					flat["location_"+k+"_name"] = name
				}
			}
		}
	}

	if ios, ok := detail["ios"].(map[string]any); ok {
		for k, v := range ios {
			if isScalar(v) {
				flat[k] = v
			}
		}
		if apps, ok := ios["applications"].([]any); ok {
			flat["application_count"] = len(apps)
		}
		if network, ok := ios["network"].(map[string]any); ok {
			for k, v := range network {
				if isScalar(v) {
					flat["network_"+k] = v
				}
			}
		}
	}

	return flat
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}
