package mdm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/model"
)

const (
	commandEndpoint    = "v2/mdm/commands"
	recalculateFormat  = "v1/mobile-devices/%d/recalculate-smart-groups"
	deviceNamePath     = "mobiledevicecommands/command/DeviceName"
	eraseDevicePath    = "mobiledevicecommands/command/EraseDevice"
	updateInventoryFmt = "mobiledevicecommands/command/UpdateInventory/id/%d"
	scheduleUpdateFmt  = "mobiledevicecommands/command/ScheduleOSUpdate/%d/id/%d"
	commandFlushFmt    = "commandflush/mobiledevices/id/%d/status/%s"
)

// DeviceTypeMobile is the client type for mobile device command targets.
const DeviceTypeMobile = "MOBILE_DEVICE"

// WipeFailed is the sentinel returned when the wipe endpoint answers
// anything but 201. The legacy contract reports this failure as a value,
// not an error; sibling commands raise instead.
const WipeFailed = "wipe command failed"

// Recognized command-queue flush states.
const (
	FlushPending       = "Pending"
	FlushFailed        = "Failed"
	FlushPendingFailed = "Pending+Failed"
)

type clientData struct {
	ManagementID string `json:"managementId"`
	ClientType   string `json:"clientType"`
}

type commandEnvelope struct {
	ClientData  []clientData `json:"clientData"`
	CommandData any          `json:"commandData"`
}

// SendCommand posts a command envelope targeting the device's management
// identifier. A 400 has its body logged before failing since it almost
// always means the payload shape was wrong.
func (c *Client) SendCommand(ctx context.Context, managementID string, command any, deviceType string) error {
	if deviceType == "" {
		deviceType = DeviceTypeMobile
	}
	envelope := commandEnvelope{
		ClientData:  []clientData{{ManagementID: managementID, ClientType: deviceType}},
		CommandData: command,
	}

	resp, err := c.restDo(ctx, c.rest, http.MethodPost, commandEndpoint, envelope)
	if err != nil {
		return fmt.Errorf("sending command: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		log.Error("Command rejected", "management_id", managementID, "response", strings.TrimSpace(string(body)))
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	if resp.StatusCode >= 400 {
		return &TransportError{Status: resp.StatusCode, Endpoint: commandEndpoint}
	}
	return nil
}

// RenameDevice resolves the device's management identifier and sends a
// SETTINGS command with the new name. With enforce set, the
// organizational enforce-name flag is updated first; that update and
// the rename command are independent calls with no atomicity between
// them, so an enforcement failure is logged and the rename still goes
// out.
func (c *Client) RenameDevice(ctx context.Context, id int, name string, enforce bool) error {
	device, err := c.GetDevice(ctx, id, true)
	if err != nil {
		return err
	}
	if device == nil {
		return fmt.Errorf("device %d: %w", id, ErrNotFound)
	}
	managementID := device.String("managementId")
	if managementID == "" {
		return &IncompleteRecordError{DeviceID: id, Field: "managementId"}
	}

	if enforce {
		enforceName := true
		if err := c.UpdateDevice(ctx, id, model.DeviceUpdate{EnforceName: &enforceName}); err != nil {
			log.Warn("Enforce-name update failed, sending rename anyway", "id", id, "error", err)
		}
	}

	command := map[string]any{
		"commandType": "SETTINGS",
		"deviceName":  name,
	}
	if err := c.SendCommand(ctx, managementID, command, DeviceTypeMobile); err != nil {
		return fmt.Errorf("renaming device %d: %w", id, err)
	}
	log.Info("Rename command sent", "id", id, "name", name)
	return nil
}

// UpdateDeviceName pushes a rename through the legacy per-command
// endpoint. Success is 201.
func (c *Client) UpdateDeviceName(ctx context.Context, id int, name string) (string, error) {
	path := fmt.Sprintf("%s/%s/id/%d", deviceNamePath, url.PathEscape(name), id)
	resp, err := c.classicDo(ctx, http.MethodPost, path, nil)
	if err != nil {
		return "", fmt.Errorf("renaming device %d: %w", id, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		log.Error("Device name command rejected", "id", id, "status", resp.StatusCode, "response", strings.TrimSpace(string(body)))
		return "", &TransportError{Status: resp.StatusCode, Endpoint: deviceNamePath}
	}
	return string(body), nil
}

// WipeDevice erases a device through the legacy endpoint. Success is
// 201 and returns the response body; any other status returns the
// WipeFailed sentinel with a nil error, preserving the legacy contract.
func (c *Client) WipeDevice(ctx context.Context, id int) (string, error) {
	path := fmt.Sprintf("%s/id/%d", eraseDevicePath, id)
	resp, err := c.classicDo(ctx, http.MethodPost, path, nil)
	if err != nil {
		return "", fmt.Errorf("wiping device %d: %w", id, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		log.Error("Wipe command not accepted", "id", id, "status", resp.StatusCode)
		return WipeFailed, nil
	}
	log.Info("Wipe command sent", "id", id)
	return string(body), nil
}

// UpdateInventory asks the device to report fresh inventory. Unlike
// wipe, a non-201 here is an error.
func (c *Client) UpdateInventory(ctx context.Context, id int) (string, error) {
	path := fmt.Sprintf(updateInventoryFmt, id)
	resp, err := c.classicDo(ctx, http.MethodPost, path, nil)
	if err != nil {
		return "", fmt.Errorf("updating inventory for device %d: %w", id, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return "", &TransportError{Status: resp.StatusCode, Endpoint: path}
	}
	return string(body), nil
}

// ScheduleOSUpdate flushes the device's pending and failed queued
// commands, then schedules an OS update. forceInstall selects the
// download-and-install urgency (2) over download-only (1).
func (c *Client) ScheduleOSUpdate(ctx context.Context, id int, forceInstall bool) error {
	if err := c.FlushCommands(ctx, id, FlushPendingFailed); err != nil {
		return fmt.Errorf("flushing commands before OS update: %w", err)
	}

	installCode := 1
	if forceInstall {
		installCode = 2
	}
	path := fmt.Sprintf(scheduleUpdateFmt, installCode, id)
	resp, err := c.classicDo(ctx, http.MethodPost, path, nil)
	if err != nil {
		return fmt.Errorf("scheduling OS update for device %d: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return &TransportError{Status: resp.StatusCode, Endpoint: path}
	}
	log.Info("OS update scheduled", "id", id, "force_install", forceInstall)
	return nil
}

// FlushCommands clears queued commands for a device by state. The state
// must be one of FlushPending, FlushFailed or FlushPendingFailed; it is
// validated before any network call.
func (c *Client) FlushCommands(ctx context.Context, id int, status string) error {
	switch status {
	case FlushPending, FlushFailed, FlushPendingFailed:
	default:
		return fmt.Errorf("%w: flush status %q", ErrInvalidArgument, status)
	}

	path := fmt.Sprintf(commandFlushFmt, id, url.PathEscape(status))
	resp, err := c.classicDo(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("flushing commands for device %d: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Status: resp.StatusCode, Endpoint: path}
	}
	log.Debug("Commands flushed", "id", id, "status", status)
	return nil
}

// RecalculateSmartGroups recalculates the device's smart-group
// memberships and returns the membership count.
func (c *Client) RecalculateSmartGroups(ctx context.Context, id int) (int, error) {
	endpoint := fmt.Sprintf(recalculateFormat, id)
	resp, err := c.restDo(ctx, c.rest, http.MethodPost, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("recalculating smart groups for device %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &TransportError{Status: resp.StatusCode, Endpoint: endpoint}
	}
	var payload struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding recalculation response: %w", err)
	}
	return payload.Count, nil
}
