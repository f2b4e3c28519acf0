// Package inventory enriches device data bundles with records fetched
// from a NetBox instance.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/herder-tools/herder/pkg/util"
)

// Client fetches device records from the NetBox REST API. An optional
// read-through cache avoids hammering NetBox on large runs; cache
// failures degrade to direct fetches.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	cache   Cache
	ttl     time.Duration
}

// NewClient creates a NetBox client for the given API base URL and token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithCache attaches a read-through cache with the given TTL.
func (c *Client) WithCache(cache Cache, ttl time.Duration) *Client {
	c.cache = cache
	c.ttl = ttl
	return c
}

type deviceList struct {
	Count   int            `json:"count"`
	Results []deviceRecord `json:"results"`
}

type deviceRecord struct {
	Serial string `json:"serial"`
	Status struct {
		Value string `json:"value"`
	} `json:"status"`
	Site struct {
		Slug string `json:"slug"`
	} `json:"site"`
	PrimaryIP4 *struct {
		Address string `json:"address"`
	} `json:"primary_ip4"`
	PrimaryIP6 *struct {
		Address string `json:"address"`
	} `json:"primary_ip6"`
}

// Device returns the inventory record for fqdn as a data-bundle
// fragment: status, serial, site, primary_ip4, primary_ip6.
func (c *Client) Device(ctx context.Context, fqdn string) (map[string]interface{}, error) {
	key := "herder:netbox:" + fqdn
	if c.cache != nil {
		if data, ok := c.cache.Get(ctx, key); ok {
			var cached map[string]interface{}
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
			util.WithDevice(fqdn).Debugf("discarding corrupt cache entry")
		}
	}

	record, err := c.fetch(ctx, fqdn)
	if err != nil {
		return nil, err
	}

	fragment := map[string]interface{}{
		"status":      record.Status.Value,
		"serial":      record.Serial,
		"site":        record.Site.Slug,
		"primary_ip4": "",
		"primary_ip6": "",
	}
	if record.PrimaryIP4 != nil {
		fragment["primary_ip4"] = record.PrimaryIP4.Address
	}
	if record.PrimaryIP6 != nil {
		fragment["primary_ip6"] = record.PrimaryIP6.Address
	}

	if c.cache != nil {
		if data, err := json.Marshal(fragment); err == nil {
			c.cache.Set(ctx, key, data, c.ttl)
		}
	}
	return fragment, nil
}

func (c *Client) fetch(ctx context.Context, fqdn string) (*deviceRecord, error) {
	endpoint := c.baseURL + "/api/dcim/devices/?name=" + url.QueryEscape(fqdn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building netbox request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("netbox request for %s: %w", fqdn, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("netbox request for %s: status %d", fqdn, resp.StatusCode)
	}

	var list deviceList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding netbox response for %s: %w", fqdn, err)
	}
	if len(list.Results) == 0 {
		return nil, fmt.Errorf("device %s not found in netbox", fqdn)
	}
	return &list.Results[0], nil
}
