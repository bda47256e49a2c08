package pdns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/miekg/dns"

	"github.com/kreigan/powerdns-zone-reconciler/internal/logger"
)

// Client is a PowerDNS API client for API version 1.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new PowerDNS client.
// baseURL should be the full API URL including server path, e.g.:
// http://localhost:8081/api/v1/servers/localhost
func NewClient(baseURL, apiKey string, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		log:        log,
	}
}

// canonicalZoneID ensures the zone id carries the trailing dot PowerDNS
// requires in URLs.
func canonicalZoneID(zoneID string) string {
	return url.PathEscape(dns.Fqdn(zoneID))
}

// doRequest performs an HTTP request to the PowerDNS API.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	reqURL := c.baseURL + path
	c.log.Debug("HTTP %s %s", method, reqURL)

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("HTTP request failed: %s %s: %v", method, reqURL, err)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.log.Debug("HTTP %s %s -> %d %s", method, reqURL, resp.StatusCode, resp.Status)
	return resp, nil
}

// handleError consumes a non-success response and turns it into a StatusError.
func (c *Client) handleError(method, path string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := ""
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		message = apiErr.Error
	} else {
		message = string(body)
		if len(message) > 200 {
			message = message[:200] + "..."
		}
	}

	c.log.Error("API error: %s %s -> %d: %s", method, path, resp.StatusCode, message)
	return &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// expectSuccess closes the response body and maps any non-2xx status to a
// StatusError. Used for mutations whose response body carries nothing we need.
func (c *Client) expectSuccess(method, path string, resp *http.Response) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleError(method, path, resp)
	}
	return nil
}

// GetZone retrieves a zone including its RRsets.
// GET /zones/{zone_id}
// A missing zone is reported as (nil, nil), not as an error.
func (c *Client) GetZone(ctx context.Context, zoneID string) (*Zone, error) {
	path := fmt.Sprintf("/zones/%s", canonicalZoneID(zoneID))
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleError(http.MethodGet, path, resp)
	}

	var zone Zone
	if err := json.NewDecoder(resp.Body).Decode(&zone); err != nil {
		return nil, fmt.Errorf("failed to parse zone response: %w", err)
	}
	return &zone, nil
}

// CreateZone creates a new DNS zone.
// POST /zones
func (c *Client) CreateZone(ctx context.Context, zone *Zone) (*Zone, error) {
	path := "/zones"
	resp, err := c.doRequest(ctx, http.MethodPost, path, zone)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, c.handleError(http.MethodPost, path, resp)
	}

	var created Zone
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to parse create response: %w", err)
	}
	return &created, nil
}

// UpdateZone modifies zone attributes (kind, masters, SOA-EDIT policies,
// DNSSEC flags, NSEC3 parameters).
// PUT /zones/{zone_id}
func (c *Client) UpdateZone(ctx context.Context, zoneID string, update *ZoneUpdate) error {
	path := fmt.Sprintf("/zones/%s", canonicalZoneID(zoneID))
	resp, err := c.doRequest(ctx, http.MethodPut, path, update)
	if err != nil {
		return err
	}
	return c.expectSuccess(http.MethodPut, path, resp)
}

// DeleteZone removes a zone and all of its records.
// DELETE /zones/{zone_id}
func (c *Client) DeleteZone(ctx context.Context, zoneID string) error {
	path := fmt.Sprintf("/zones/%s", canonicalZoneID(zoneID))
	resp, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return c.expectSuccess(http.MethodDelete, path, resp)
}

// ListZones returns all zones known to the server, without RRsets.
// GET /zones
func (c *Client) ListZones(ctx context.Context) ([]Zone, error) {
	path := "/zones"
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleError(http.MethodGet, path, resp)
	}

	var zones []Zone
	if err := json.NewDecoder(resp.Body).Decode(&zones); err != nil {
		return nil, fmt.Errorf("failed to parse zone list: %w", err)
	}
	return zones, nil
}

// GetMetadata returns the zone's metadata as a kind -> values map.
// GET /zones/{zone_id}/metadata
func (c *Client) GetMetadata(ctx context.Context, zoneID string) (map[string][]string, error) {
	path := fmt.Sprintf("/zones/%s/metadata", canonicalZoneID(zoneID))
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleError(http.MethodGet, path, resp)
	}

	var items []Metadata
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse metadata response: %w", err)
	}

	metadata := make(map[string][]string, len(items))
	for _, item := range items {
		metadata[item.Kind] = item.Metadata
	}
	return metadata, nil
}

// UpsertMetadata creates or replaces one metadata kind.
// PUT /zones/{zone_id}/metadata/{kind}
func (c *Client) UpsertMetadata(ctx context.Context, zoneID, kind string, values []string) error {
	path := fmt.Sprintf("/zones/%s/metadata/%s", canonicalZoneID(zoneID), url.PathEscape(kind))
	body := Metadata{Kind: kind, Metadata: values}
	resp, err := c.doRequest(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	return c.expectSuccess(http.MethodPut, path, resp)
}

// DeleteMetadata removes one metadata kind.
// DELETE /zones/{zone_id}/metadata/{kind}
func (c *Client) DeleteMetadata(ctx context.Context, zoneID, kind string) error {
	path := fmt.Sprintf("/zones/%s/metadata/%s", canonicalZoneID(zoneID), url.PathEscape(kind))
	resp, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return c.expectSuccess(http.MethodDelete, path, resp)
}

// PatchRRsets applies a batch of REPLACE/DELETE RRset changes.
// PATCH /zones/{zone_id}
func (c *Client) PatchRRsets(ctx context.Context, zoneID string, patch *RRsetPatch) error {
	path := fmt.Sprintf("/zones/%s", canonicalZoneID(zoneID))
	resp, err := c.doRequest(ctx, http.MethodPatch, path, patch)
	if err != nil {
		return err
	}
	return c.expectSuccess(http.MethodPatch, path, resp)
}

// QueryDnssecState reads the zone's DNSSEC status and NSEC3 parameters.
func (c *Client) QueryDnssecState(ctx context.Context, zoneID string) (*DnssecState, error) {
	zone, err := c.GetZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, fmt.Errorf("zone %s does not exist", zoneID)
	}
	return zone.DnssecState()
}

// SecureZone enables DNSSEC for a zone; the server creates and activates keys.
func (c *Client) SecureZone(ctx context.Context, zoneID string) error {
	secured := true
	return c.UpdateZone(ctx, zoneID, &ZoneUpdate{DNSSEC: &secured})
}

// DisableDnssec turns DNSSEC off for a zone; the server removes its keys.
func (c *Client) DisableDnssec(ctx context.Context, zoneID string) error {
	secured := false
	return c.UpdateZone(ctx, zoneID, &ZoneUpdate{DNSSEC: &secured})
}

// SetNSEC3 configures the zone's NSEC3 parameters and the narrow flag.
func (c *Client) SetNSEC3(ctx context.Context, zoneID string, params NSEC3) error {
	paramStr := FormatNSEC3Param(params)
	narrow := params.Narrow
	return c.UpdateZone(ctx, zoneID, &ZoneUpdate{
		NSEC3Param:  &paramStr,
		NSEC3Narrow: &narrow,
	})
}

// RectifyZone recomputes DNSSEC ordering data for a zone.
// PUT /zones/{zone_id}/rectify
func (c *Client) RectifyZone(ctx context.Context, zoneID string) error {
	path := fmt.Sprintf("/zones/%s/rectify", canonicalZoneID(zoneID))
	resp, err := c.doRequest(ctx, http.MethodPut, path, nil)
	if err != nil {
		return err
	}
	return c.expectSuccess(http.MethodPut, path, resp)
}
