package mdm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileFixture = `<?xml version="1.0" encoding="UTF-8"?>
<configuration_profile>
  <general>
    <id>127</id>
    <name>Device Renaming Restriction</name>
  </general>
  <scope>
    <exclusions>
      <mobile_devices>
        <mobile_device>
          <id>2</id>
          <name>fi-cartA-002</name>
          <udid>udid-2</udid>
          <wifi_mac_address>AA:00:00:00:00:02</wifi_mac_address>
        </mobile_device>
      </mobile_devices>
    </exclusions>
  </scope>
</configuration_profile>`

// profileServer wires the device record, profile fetch and profile
// write-back endpoints and captures the written document.
type profileServer struct {
	mux    *http.ServeMux
	puts   atomic.Int32
	putDoc []byte
}

func newProfileServer(deviceJSON string) *profileServer {
	ps := &profileServer{mux: http.NewServeMux()}
	if deviceJSON != "" {
		ps.mux.HandleFunc("GET /uapi/inventory/obj/mobileDevice/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(deviceJSON))
		})
	}
	ps.mux.HandleFunc("GET /JSSResource/mobiledeviceconfigurationprofiles/id/127", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(profileFixture))
	})
	ps.mux.HandleFunc("PUT /JSSResource/mobiledeviceconfigurationprofiles/id/127", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ps.putDoc = body
		ps.puts.Add(1)
		w.WriteHeader(http.StatusCreated)
	})
	return ps
}

func TestExcludeDeviceAddsNode(t *testing.T) {
	ps := newProfileServer(`{"id": 3, "name": "fi-cartA-003", "udid": "udid-3", "wifiMacAddress": "AA:00:00:00:00:03"}`)
	c := newTestClient(t, ps.mux)

	require.NoError(t, c.ExcludeDeviceFromProfile(context.Background(), 3, 127))
	require.Equal(t, int32(1), ps.puts.Load())

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(ps.putDoc))
	devices := doc.FindElements("//exclusions/mobile_devices/mobile_device")
	require.Len(t, devices, 2)

	added := doc.FindElement("//mobile_devices/mobile_device[id='3']")
	require.NotNil(t, added)
	assert.Equal(t, "fi-cartA-003", added.FindElement("name").Text())
	assert.Equal(t, "udid-3", added.FindElement("udid").Text())
	assert.Equal(t, "AA:00:00:00:00:03", added.FindElement("wifi_mac_address").Text())

	// The untouched parts of the document survive the round trip.
	assert.NotNil(t, doc.FindElement("//general/name"))
}

func TestExcludeDeviceAlreadyExcluded(t *testing.T) {
	ps := newProfileServer(`{"id": 2, "name": "fi-cartA-002", "udid": "udid-2", "wifiMacAddress": "AA:00:00:00:00:02"}`)
	c := newTestClient(t, ps.mux)

	// Adding an id already on the list is a no-op with no write.
	require.NoError(t, c.ExcludeDeviceFromProfile(context.Background(), 2, 127))
	assert.Equal(t, int32(0), ps.puts.Load())
}

func TestIncludeDeviceRemovesNode(t *testing.T) {
	ps := newProfileServer(`{"id": 2, "name": "fi-cartA-002", "udid": "udid-2", "wifiMacAddress": "AA:00:00:00:00:02"}`)
	c := newTestClient(t, ps.mux)

	require.NoError(t, c.IncludeDeviceInProfile(context.Background(), 2, 127))
	require.Equal(t, int32(1), ps.puts.Load())

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(ps.putDoc))
	assert.Nil(t, doc.FindElement("//mobile_devices/mobile_device[id='2']"))
}

func TestIncludeDeviceNotExcluded(t *testing.T) {
	ps := newProfileServer(`{"id": 9, "name": "fi-cartA-009", "udid": "udid-9", "wifiMacAddress": "AA:00:00:00:00:09"}`)
	c := newTestClient(t, ps.mux)

	// Removing an absent entry is already satisfied, no write.
	require.NoError(t, c.IncludeDeviceInProfile(context.Background(), 9, 127))
	assert.Equal(t, int32(0), ps.puts.Load())
}

func TestExcludeDeviceIncompleteRecord(t *testing.T) {
	ps := newProfileServer(`{"id": 3, "name": "fi-cartA-003", "udid": "udid-3"}`)
	c := newTestClient(t, ps.mux)

	err := c.ExcludeDeviceFromProfile(context.Background(), 3, 127)

	var incomplete *IncompleteRecordError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, "wifiMacAddress", incomplete.Field)
	assert.Equal(t, int32(0), ps.puts.Load())
}

func TestExcludeDeviceMalformedProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /uapi/inventory/obj/mobileDevice/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 3, "name": "d", "udid": "u", "wifiMacAddress": "m"}`))
	})
	mux.HandleFunc("GET /JSSResource/mobiledeviceconfigurationprofiles/id/127", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<configuration_profile><general><id>127</id></general></configuration_profile>`))
	})

	c := newTestClient(t, mux)
	err := c.ExcludeDeviceFromProfile(context.Background(), 3, 127)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestExcludeDeviceMissingDevice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /uapi/inventory/obj/mobileDevice/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c := newTestClient(t, mux)
	err := c.ExcludeDeviceFromProfile(context.Background(), 3, 127)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfileUsesDocumentID(t *testing.T) {
	ps := newProfileServer("")
	c := newTestClient(t, ps.mux)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(bytes.TrimSpace([]byte(profileFixture))))

	// The write-back path comes from the document's own general/id.
	require.NoError(t, c.updateConfigurationProfile(context.Background(), doc))
	assert.Equal(t, int32(1), ps.puts.Load())
}
