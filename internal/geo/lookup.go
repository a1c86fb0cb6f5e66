// Package geo resolves client IP addresses to coarse locations.
package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrLookupFailed = errors.New("geo lookup failed")

// Location is a coarse client location. Empty fields are unknown.
type Location struct {
	Country string
	Region  string
	City    string
}

// Lookup resolves an IP address to a location.
type Lookup interface {
	Lookup(ctx context.Context, ip string) (*Location, error)
}

// Disabled never resolves anything.
type Disabled struct{}

func (Disabled) Lookup(_ context.Context, _ string) (*Location, error) {
	return &Location{}, nil
}

// ipAPIResponse is the subset of the ip-api.com JSON payload we read.
type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
}

// HTTPLookup queries an ip-api compatible endpoint: GET {baseURL}/json/{ip}.
type HTTPLookup struct {
	client *resty.Client
}

// NewHTTPLookup creates a lookup client against baseURL.
func NewHTTPLookup(baseURL string, timeout time.Duration) *HTTPLookup {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HTTPLookup{client: client}
}

func (l *HTTPLookup) Lookup(ctx context.Context, ip string) (*Location, error) {
	resp, err := l.client.R().
		SetContext(ctx).
		SetPathParam("ip", ip).
		SetQueryParam("fields", "status,message,country,regionName,city").
		SetResult(&ipAPIResponse{}).
		Get("/json/{ip}")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode())
	}

	result, ok := resp.Result().(*ipAPIResponse)
	if !ok || result.Status != "success" {
		msg := "unexpected response"
		if ok && result.Message != "" {
			msg = result.Message
		}

		return nil, fmt.Errorf("%w: %s", ErrLookupFailed, msg)
	}

	return &Location{
		Country: result.Country,
		Region:  result.RegionName,
		City:    result.City,
	}, nil
}

// Compile-time checks.
var (
	_ Lookup = Disabled{}
	_ Lookup = (*HTTPLookup)(nil)
)
