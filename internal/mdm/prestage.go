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

const (
	prestageScopeFmt    = "v2/mobile-device-prestages/%d/scope"
	prestageScopeMapURL = "v2/mobile-device-prestages/scope"
)

// GetPrestageScope reads the current serial-number scope of a prestage
// along with the version lock required to write it back.
func (c *Client) GetPrestageScope(ctx context.Context, prestageID int) (*model.PrestageScope, error) {
	endpoint := fmt.Sprintf(prestageScopeFmt, prestageID)
	resp, err := c.restDo(ctx, c.rest, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("reading prestage %d scope: %w", prestageID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Status: resp.StatusCode, Endpoint: endpoint}
	}
	var scope model.PrestageScope
	if err := json.NewDecoder(resp.Body).Decode(&scope); err != nil {
		return nil, fmt.Errorf("decoding prestage %d scope: %w", prestageID, err)
	}
	return &scope, nil
}

// AddDeviceToPrestage scopes a device into an enrollment prestage. The
// serial may be empty, in which case it is resolved from the device id.
// A device already in scope is a success with zero write calls.
func (c *Client) AddDeviceToPrestage(ctx context.Context, prestageID, deviceID int, serial string) error {
	if serial == "" {
		var err error
		serial, err = c.DeviceSerial(ctx, deviceID)
		if err != nil {
			return err
		}
	}

	scope, err := c.GetPrestageScope(ctx, prestageID)
	if err != nil {
		return err
	}
	if scope.Contains(serial) {
		log.Debug("Device already scoped to prestage", "serial", serial, "prestage_id", prestageID)
		return nil
	}

	scope.SerialNumbers = append(scope.SerialNumbers, serial)
	if err := c.writePrestageScope(ctx, prestageID, scope); err != nil {
		return err
	}
	log.Info("Device added to prestage", "serial", serial, "prestage_id", prestageID)
	return nil
}

// RemoveDeviceFromPrestage removes a device from whichever prestage its
// serial is scoped to. A device with no prestage is a trivial success.
func (c *Client) RemoveDeviceFromPrestage(ctx context.Context, deviceID int) error {
	serial, err := c.DeviceSerial(ctx, deviceID)
	if err != nil {
		return err
	}

	prestageID, err := c.prestageForSerial(ctx, serial)
	if err != nil {
		return err
	}
	if prestageID == 0 {
		log.Debug("Device has no prestage", "serial", serial)
		return nil
	}

	scope, err := c.GetPrestageScope(ctx, prestageID)
	if err != nil {
		return err
	}
	if !scope.Contains(serial) {
		return nil
	}

	kept := scope.SerialNumbers[:0]
	for _, sn := range scope.SerialNumbers {
		if sn != serial {
			kept = append(kept, sn)
		}
	}
	scope.SerialNumbers = kept

	if err := c.writePrestageScope(ctx, prestageID, scope); err != nil {
		return err
	}
	log.Info("Device removed from prestage", "serial", serial, "prestage_id", prestageID)
	return nil
}

// prestageForSerial reverse-looks-up the prestage a serial is scoped
// to. Zero means no prestage.
func (c *Client) prestageForSerial(ctx context.Context, serial string) (int, error) {
	resp, err := c.restDo(ctx, c.rest, http.MethodGet, prestageScopeMapURL, nil)
	if err != nil {
		return 0, fmt.Errorf("reading prestage scope map: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &TransportError{Status: resp.StatusCode, Endpoint: prestageScopeMapURL}
	}
	var payload struct {
		SerialsByPrestageID map[string]int `json:"serialsByPrestageId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding prestage scope map: %w", err)
	}
	return payload.SerialsByPrestageID[serial], nil
}

// writePrestageScope submits the serial list guarded by the version
// lock carried in the scope. A stale lock is a conflict; the caller
// must re-read the scope, it is never retried here.
func (c *Client) writePrestageScope(ctx context.Context, prestageID int, scope *model.PrestageScope) error {
	endpoint := fmt.Sprintf(prestageScopeFmt, prestageID)
	resp, err := c.restDo(ctx, c.rest, http.MethodPut, endpoint, scope)
	if err != nil {
		return fmt.Errorf("writing prestage %d scope: %w", prestageID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("prestage %d: %w", prestageID, ErrConflict)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Status: resp.StatusCode, Endpoint: endpoint}
	}
	return nil
}
