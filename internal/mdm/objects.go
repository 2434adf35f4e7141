package mdm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	buildingEndpoint   = "settings/obj/building"
	departmentEndpoint = "settings/obj/department"
	siteEndpoint       = "settings/obj/site"
)

// listObjects fetches a named-object collection. The organizational
// lookups (buildings, departments, sites) all share this shape.
func (c *Client) listObjects(ctx context.Context, endpoint string) ([]map[string]any, error) {
	resp, err := c.restDo(ctx, c.rest, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Status: resp.StatusCode, Endpoint: endpoint}
	}
	var objects []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return objects, nil
}

// findObjectByName filters an object list by exact name. An empty name
// or a name with no match returns nil without error.
func (c *Client) findObjectByName(ctx context.Context, endpoint, name string) (map[string]any, error) {
	if name == "" {
		return nil, nil
	}
	objects, err := c.listObjects(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	for _, obj := range objects {
		if obj["name"] == name {
			return obj, nil
		}
	}
	return nil, nil
}

func (c *Client) ListBuildings(ctx context.Context) ([]map[string]any, error) {
	return c.listObjects(ctx, buildingEndpoint)
}

func (c *Client) GetBuilding(ctx context.Context, name string) (map[string]any, error) {
	return c.findObjectByName(ctx, buildingEndpoint, name)
}

func (c *Client) ListDepartments(ctx context.Context) ([]map[string]any, error) {
	return c.listObjects(ctx, departmentEndpoint)
}

func (c *Client) GetDepartment(ctx context.Context, name string) (map[string]any, error) {
	return c.findObjectByName(ctx, departmentEndpoint, name)
}

func (c *Client) ListSites(ctx context.Context) ([]map[string]any, error) {
	return c.listObjects(ctx, siteEndpoint)
}

func (c *Client) GetSite(ctx context.Context, name string) (map[string]any, error) {
	return c.findObjectByName(ctx, siteEndpoint, name)
}

// StripExtraLocationInformation reduces an organizational object to its
// id and name, the shape the device update endpoint accepts.
func StripExtraLocationInformation(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	stripped := map[string]any{}
	if id, ok := obj["id"]; ok {
		stripped["id"] = id
	}
	if name, ok := obj["name"]; ok {
		stripped["name"] = name
	}
	return stripped
}
