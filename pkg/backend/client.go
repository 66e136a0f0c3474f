// Package backend talks to the catalog backend REST API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rinaldiihsan/sixstreet-sub001/pkg/auth"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/metrics"
)

const (
	upstreamName                = "backend"
	defaultTimeout              = 10 * time.Second
	requestBodyReadLimit  int64 = 1024
)

var errBaseURLRequired = errors.New("backend base url is required")

// Client fetches catalog data on behalf of the storefront.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *metrics.UpstreamMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMetrics records every request on the upstream metrics.
func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a backend client rooted at baseURL.
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

// Product is one flat variant row of GET /products.
type Product struct {
	ID           FlexString `json:"id"`
	Name         string     `json:"name"`
	GroupID      FlexString `json:"group_id"`
	Price        FlexFloat  `json:"price"`
	Stock        FlexInt    `json:"stock"`
	CategoryID   FlexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
	Thumbnail    string     `json:"thumbnail"`
	UpdatedAt    string     `json:"updated_at"`
}

// ProductGroup is the payload of GET /products/group/:id.
type ProductGroup struct {
	ID           FlexString  `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	CategoryID   FlexString  `json:"category_id"`
	CategoryName string      `json:"category_name"`
	UpdatedAt    string      `json:"updated_at"`
	Variations   []Variation `json:"variations"`
	SKUs         []SKU       `json:"product_skus"`
	Images       []Image     `json:"images"`
}

type Variation struct {
	ID    FlexString `json:"id"`
	Name  string     `json:"name"`
	Value string     `json:"value"`
}

type SKU struct {
	ID        FlexString `json:"id"`
	Name      string     `json:"name"`
	SKU       string     `json:"sku"`
	Price     FlexFloat  `json:"price"`
	Stock     FlexInt    `json:"stock"`
	Thumbnail string     `json:"thumbnail"`
}

type Image struct {
	ID  FlexString `json:"id"`
	URL string     `json:"url"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// ListProducts returns every variant row. The token is optional for public catalog reads.
func (c *Client) ListProducts(ctx context.Context, token string) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "list_products", "products", token, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// GetProductGroup returns the group detail with its variations, SKUs and images.
func (c *Client) GetProductGroup(ctx context.Context, token, groupID string) (*ProductGroup, error) {
	trimmed := strings.TrimSpace(groupID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id is required")
	}
	var group ProductGroup
	if err := c.get(ctx, "get_product_group", "products/group/"+url.PathEscape(trimmed), token, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *Client) get(ctx context.Context, operation, path, token string, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+operation+" request")
	}
	httpReq.Header.Set("Accept", "application/json")
	auth.SetBearer(httpReq, token)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.Observe(upstreamName, operation, 0, time.Since(start))
		return classifyTransportError(err, operation)
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Observe(upstreamName, operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(codeForStatus(resp.StatusCode), fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), operation+" request failed")
	}

	body := envelope[json.RawMessage]{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+operation+" response")
	}
	if !body.Success {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("%s unsuccessful: %s", operation, body.Message))
	}
	if len(body.Data) == 0 || string(body.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+operation+" data")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusGatewayTimeout:
		return pkgerrors.CodeTimeout
	default:
		return pkgerrors.CodeDependency
	}
}

func classifyTransportError(err error, operation string) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, operation+" timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+operation+" request")
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
