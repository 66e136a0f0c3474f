// Package rajaongkir is a client for the RajaOngkir-style shipping rate proxy.
package rajaongkir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rinaldiihsan/sixstreet-sub001/pkg/auth"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/metrics"
)

const (
	upstreamName               = "rajaongkir"
	locationTypeSubdistrict    = "subdistrict"
	defaultTimeout             = 10 * time.Second
	requestBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("shipping rate base url is required")

// Client issues rate and region lookups. Requests are authorized with the
// caller's bearer token from the context, or with a static API key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	metrics    *metrics.UpstreamMetrics
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithAPIKey sends the provider "key" header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// CostRequest is one courier rate lookup between two subdistricts.
type CostRequest struct {
	OriginID      string
	DestinationID string
	WeightGrams   int
	Courier       string
}

// CostResult is one courier block of the provider response.
type CostResult struct {
	Code  string
	Name  string
	Costs []ServiceCost
}

// ServiceCost is one service offered by a courier.
type ServiceCost struct {
	Service     string
	Description string
	Value       int64
	ETD         string
}

type Province struct {
	ID   string `json:"province_id"`
	Name string `json:"province"`
}

type City struct {
	ID         string `json:"city_id"`
	ProvinceID string `json:"province_id"`
	Province   string `json:"province"`
	Type       string `json:"type"`
	Name       string `json:"city_name"`
	PostalCode string `json:"postal_code"`
}

type Subdistrict struct {
	ID     string `json:"subdistrict_id"`
	CityID string `json:"city_id"`
	City   string `json:"city"`
	Name   string `json:"subdistrict_name"`
}

type costPayload struct {
	Origin          string `json:"origin"`
	OriginType      string `json:"originType"`
	Destination     string `json:"destination"`
	DestinationType string `json:"destinationType"`
	Weight          int    `json:"weight"`
	Courier         string `json:"courier"`
}

type wrapped[T any] struct {
	RajaOngkir struct {
		Status struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"status"`
		Results T `json:"results"`
	} `json:"rajaongkir"`
}

// Cost quotes a single courier. A courier with no services yields results with empty Costs.
func (c *Client) Cost(ctx context.Context, req CostRequest) ([]CostResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipping rate client not configured")
	}
	if strings.TrimSpace(req.DestinationID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}
	if strings.TrimSpace(req.OriginID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "origin is required")
	}
	if strings.TrimSpace(req.Courier) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier is required")
	}
	if req.WeightGrams <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
	}

	payload, err := json.Marshal(costPayload{
		Origin:          strings.TrimSpace(req.OriginID),
		OriginType:      locationTypeSubdistrict,
		Destination:     strings.TrimSpace(req.DestinationID),
		DestinationType: locationTypeSubdistrict,
		Weight:          req.WeightGrams,
		Courier:         strings.TrimSpace(req.Courier),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal cost request")
	}

	var raw []struct {
		Code  string `json:"code"`
		Name  string `json:"name"`
		Costs []struct {
			Service     string `json:"service"`
			Description string `json:"description"`
			Cost        []struct {
				Value json.Number `json:"value"`
				ETD   string      `json:"etd"`
			} `json:"cost"`
		} `json:"costs"`
	}
	if err := c.do(ctx, "cost", http.MethodPost, "rajacost", bytes.NewReader(payload), &raw); err != nil {
		return nil, err
	}

	results := make([]CostResult, 0, len(raw))
	for _, r := range raw {
		result := CostResult{Code: r.Code, Name: r.Name, Costs: []ServiceCost{}}
		for _, svc := range r.Costs {
			for _, option := range svc.Cost {
				value, err := parseCost(option.Value)
				if err != nil {
					continue
				}
				result.Costs = append(result.Costs, ServiceCost{
					Service:     svc.Service,
					Description: svc.Description,
					Value:       value,
					ETD:         option.ETD,
				})
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// Provinces lists every province.
func (c *Client) Provinces(ctx context.Context) ([]Province, error) {
	var out []Province
	if err := c.do(ctx, "provinces", http.MethodGet, "rajaprovince", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Cities lists cities, optionally filtered to one province.
func (c *Client) Cities(ctx context.Context, provinceID string) ([]City, error) {
	path := "rajacity"
	if trimmed := strings.TrimSpace(provinceID); trimmed != "" {
		path += "?province=" + url.QueryEscape(trimmed)
	}
	var out []City
	if err := c.do(ctx, "cities", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Subdistricts lists the subdistricts of a city.
func (c *Client) Subdistricts(ctx context.Context, cityID string) ([]Subdistrict, error) {
	trimmed := strings.TrimSpace(cityID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city id is required")
	}
	var out []Subdistrict
	if err := c.do(ctx, "subdistricts", http.MethodGet, "rajasubdistrict/"+url.PathEscape(trimmed), nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body io.Reader, results any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "shipping rate client not configured")
	}
	token := auth.AccessToken(ctx)
	if token == "" && c.apiKey == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "access token is required for shipping lookups")
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s/%s", c.baseURL, path), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+operation+" request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	auth.SetBearer(httpReq, token)
	if c.apiKey != "" {
		httpReq.Header.Set("key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.Observe(upstreamName, operation, 0, time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) {
			return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, operation+" timed out")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+operation+" request")
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Observe(upstreamName, operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		code := pkgerrors.CodeDependency
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			code = pkgerrors.CodeUnauthorized
		}
		return pkgerrors.Wrap(code, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), operation+" request failed")
	}

	var envelope wrapped[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+operation+" response")
	}
	status := envelope.RajaOngkir.Status
	if status.Code != 0 && status.Code != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("%s rejected: %d %s", operation, status.Code, status.Description))
	}
	if len(envelope.RajaOngkir.Results) == 0 || string(envelope.RajaOngkir.Results) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.RajaOngkir.Results, results); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+operation+" results")
	}
	return nil
}

func parseCost(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
