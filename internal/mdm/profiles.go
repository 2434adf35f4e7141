package mdm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/beevik/etree"
	"github.com/martinsuchenak/mdmkit/internal/log"
)

const profilePathFmt = "mobiledeviceconfigurationprofiles/id/%s"

// ExcludeDeviceFromProfile adds the device to the configuration
// profile's exclusion list. Adding a device that is already excluded is
// a no-op success with no write.
func (c *Client) ExcludeDeviceFromProfile(ctx context.Context, deviceID, profileID int) error {
	return c.setProfileExclusion(ctx, deviceID, profileID, true)
}

// IncludeDeviceInProfile removes the device from the exclusion list.
// Removing a device that is not on the list is a no-op success.
func (c *Client) IncludeDeviceInProfile(ctx context.Context, deviceID, profileID int) error {
	return c.setProfileExclusion(ctx, deviceID, profileID, false)
}

// setProfileExclusion is a read-modify-write over the profile document:
// fetch the device record for the node fields, fetch the document,
// edit the exclusions subtree in memory, and write the whole document
// back keyed by its own general/id.
func (c *Client) setProfileExclusion(ctx context.Context, deviceID, profileID int, exclude bool) error {
	device, err := c.GetDevice(ctx, deviceID, false)
	if err != nil {
		return err
	}
	if device == nil {
		return fmt.Errorf("device %d: %w", deviceID, ErrNotFound)
	}

	doc, err := c.getConfigurationProfile(ctx, profileID)
	if err != nil {
		return err
	}

	excluded := doc.FindElement("//exclusions/mobile_devices")
	if excluded == nil {
		return fmt.Errorf("profile %d has no exclusions/mobile_devices subtree: %w", profileID, ErrMalformedDocument)
	}

	id := strconv.Itoa(deviceID)
	present := false
	for _, el := range excluded.FindElements("./mobile_device/id") {
		if el.Text() == id {
			present = true
			break
		}
	}

	switch {
	case exclude && !present:
		name := device.String("name")
		udid := device.String("udid")
		mac := device.String("wifiMacAddress")
		if name == "" || udid == "" || mac == "" {
			field := "name"
			if name != "" {
				field = "udid"
				if udid != "" {
					field = "wifiMacAddress"
				}
			}
			return &IncompleteRecordError{DeviceID: deviceID, Field: field}
		}
		node := excluded.CreateElement("mobile_device")
		node.CreateElement("id").SetText(id)
		node.CreateElement("name").SetText(name)
		node.CreateElement("udid").SetText(udid)
		node.CreateElement("wifi_mac_address").SetText(mac)

	case !exclude:
		node := excluded.FindElement(fmt.Sprintf("./mobile_device[id='%s']", id))
		if node == nil {
			// Already absent from the list.
			return nil
		}
		excluded.RemoveChild(node)

	default:
		// Already excluded.
		return nil
	}

	if err := c.updateConfigurationProfile(ctx, doc); err != nil {
		return err
	}
	log.Info("Profile exclusion updated", "device_id", deviceID, "profile_id", profileID, "excluded", exclude)
	return nil
}

// getConfigurationProfile fetches the profile XML document. The document
// is kept as a generic tree so vendor fields we do not model survive
// the round trip.
func (c *Client) getConfigurationProfile(ctx context.Context, profileID int) (*etree.Document, error) {
	path := fmt.Sprintf(profilePathFmt, strconv.Itoa(profileID))
	resp, err := c.classicDo(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching profile %d: %w", profileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{Status: resp.StatusCode, Endpoint: path}
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("parsing profile %d: %w", profileID, err)
	}
	return doc, nil
}

// updateConfigurationProfile writes the document back under the profile
// id found in its own general/id element. Success is 201.
func (c *Client) updateConfigurationProfile(ctx context.Context, doc *etree.Document) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("profile document is empty: %w", ErrMalformedDocument)
	}
	idEl := root.FindElement("./general/id")
	if idEl == nil {
		return fmt.Errorf("profile document has no general/id: %w", ErrMalformedDocument)
	}

	body, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serializing profile: %w", err)
	}

	path := fmt.Sprintf(profilePathFmt, idEl.Text())
	resp, err := c.classicDo(ctx, http.MethodPut, path, body)
	if err != nil {
		return fmt.Errorf("updating profile %s: %w", idEl.Text(), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return &TransportError{Status: resp.StatusCode, Endpoint: path}
	}
	return nil
}
