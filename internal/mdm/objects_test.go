package mdm

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objectsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /uapi/settings/obj/building", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 4, "name": "Lower School", "streetAddress1": "1 Main St"},
			{"id": 5, "name": "Upper School", "streetAddress1": "2 Main St"}
		]`))
	})
	mux.HandleFunc("GET /uapi/settings/obj/department", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 25, "name": "EdTech"}]`))
	})
	mux.HandleFunc("GET /uapi/settings/obj/site", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 5, "name": "Boca"}]`))
	})
	return mux
}

func TestListBuildings(t *testing.T) {
	c := newTestClient(t, objectsHandler())

	buildings, err := c.ListBuildings(context.Background())
	require.NoError(t, err)
	assert.Len(t, buildings, 2)
}

func TestGetBuildingByName(t *testing.T) {
	c := newTestClient(t, objectsHandler())

	building, err := c.GetBuilding(context.Background(), "Lower School")
	require.NoError(t, err)
	require.NotNil(t, building)
	assert.Equal(t, float64(4), building["id"])

	// Empty name and unknown name are nil, not errors.
	building, err = c.GetBuilding(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, building)

	building, err = c.GetBuilding(context.Background(), "No Such Building")
	require.NoError(t, err)
	assert.Nil(t, building)
}

func TestGetDepartmentAndSite(t *testing.T) {
	c := newTestClient(t, objectsHandler())

	department, err := c.GetDepartment(context.Background(), "EdTech")
	require.NoError(t, err)
	require.NotNil(t, department)
	assert.Equal(t, float64(25), department["id"])

	site, err := c.GetSite(context.Background(), "Boca")
	require.NoError(t, err)
	require.NotNil(t, site)
	assert.Equal(t, "Boca", site["name"])
}

func TestStripExtraLocationInformation(t *testing.T) {
	stripped := StripExtraLocationInformation(map[string]any{
		"id":             float64(4),
		"name":           "Lower School",
		"streetAddress1": "1 Main St",
	})
	assert.Equal(t, map[string]any{"id": float64(4), "name": "Lower School"}, stripped)

	assert.Nil(t, StripExtraLocationInformation(nil))
}
