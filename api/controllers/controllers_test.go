package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rinaldiihsan/sixstreet-sub001/api/middleware"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/catalog"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/checkout"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/notify"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/shipping"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/auth"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/config"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/pagination"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/rajaongkir"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func withSession(r *http.Request, sid string) *http.Request {
	return r.WithContext(middleware.WithCheckoutSession(r.Context(), sid))
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	t.Run("all up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthReady(cfg, testLogger(), map[string]Pinger{"redis": stubPinger{}, "db": nil}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "dev", rec.Header().Get("X-Sixstreet-Env"))
	})

	t.Run("dependency down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthReady(cfg, testLogger(), map[string]Pinger{"redis": stubPinger{err: errors.New("refused")}}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.Equal(t, string(pkgerrors.CodeDependency), decodeErrorCode(t, rec))
	})
}

func TestProductListParsesQueryAndForwardsToken(t *testing.T) {
	svc := &stubCatalog{page: catalog.GroupPage{
		Items:      []catalog.ProductGroup{{GroupID: "g1", BaseName: "Jacket", TotalStock: 3, PriceRange: catalog.PriceRange{Min: 100000, Max: 150000}}},
		Page:       2,
		PageSize:   1,
		Total:      2,
		TotalPages: 2,
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?q=jack&in_stock=true&sort=price_asc&page=2&page_size=1", nil)
	req = req.WithContext(auth.WithTokens(req.Context(), auth.Tokens{Access: "tok"}))
	rec := httptest.NewRecorder()
	ProductList(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "tok", svc.token)
	require.Equal(t, "jack", svc.opts.Query)
	require.True(t, svc.opts.InStockOnly)
	require.Equal(t, catalog.SortPriceAsc, svc.opts.Sort)
	require.Equal(t, catalog.GroupByID, svc.opts.GroupBy)
	require.Equal(t, pagination.Params{Page: 2, PageSize: 1}, svc.opts.Pagination)

	var body struct {
		Data []catalog.GroupDTO `json:"data"`
		Meta struct {
			TotalPages int `json:"total_pages"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "Rp 100.000 - Rp 150.000", body.Data[0].PriceLabel)
	require.Equal(t, 2, body.Meta.TotalPages)
}

func TestProductListRejectsBadSort(t *testing.T) {
	rec := httptest.NewRecorder()
	ProductList(&stubCatalog{}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?sort=random", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductListGroupByBaseName(t *testing.T) {
	svc := &stubCatalog{}
	rec := httptest.NewRecorder()
	ProductList(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?group_by=base_name", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, catalog.GroupByName, svc.opts.GroupBy)

	rec = httptest.NewRecorder()
	ProductList(&stubCatalog{}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?group_by=color", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductGroupDetailNotFound(t *testing.T) {
	svc := &stubCatalog{err: pkgerrors.New(pkgerrors.CodeNotFound, "product group not found")}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/groups/g1", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("groupId", "g1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()

	ProductGroupDetail(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "g1", svc.groupID)
}

func TestRegionCitiesPassesProvince(t *testing.T) {
	svc := &stubRegions{cities: []rajaongkir.City{{ID: "152", Name: "Jakarta Selatan"}}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/regions/provinces/6/cities", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("provinceId", "6")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()

	RegionCities(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "6", svc.provinceID)
	var cities []rajaongkir.City
	decodeData(t, rec, &cities)
	require.Equal(t, "Jakarta Selatan", cities[0].Name)
}

func TestShippingQuotes(t *testing.T) {
	t.Run("destination required", func(t *testing.T) {
		svc := &stubQuoter{}
		rec := httptest.NewRecorder()
		ShippingQuotes(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/shipping/quotes", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Zero(t, svc.calls)
	})

	t.Run("all couriers", func(t *testing.T) {
		svc := &stubQuoter{result: shipping.Result{
			Quotes: []shipping.CourierQuotes{{CourierCode: "jne", Services: []shipping.Quote{{ServiceName: "REG", Cost: 9000}}}},
			Failed: []string{"tiki"},
		}}
		rec := httptest.NewRecorder()
		ShippingQuotes(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/shipping/quotes?destination=2087", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body shippingQuotesResponse
		decodeData(t, rec, &body)
		require.Len(t, body.Quotes, 1)
		require.Equal(t, []string{"tiki"}, body.FailedCouriers)
		require.Equal(t, "2087", svc.destination)
	})

	t.Run("single courier overload", func(t *testing.T) {
		svc := &stubQuoter{single: &shipping.CourierQuotes{CourierCode: "pos", Services: []shipping.Quote{}}}
		rec := httptest.NewRecorder()
		ShippingQuotes(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/shipping/quotes?destination=2087&courier=pos", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "pos", svc.courier)

		var body shippingQuotesResponse
		decodeData(t, rec, &body)
		require.Len(t, body.Quotes, 1)
		require.Empty(t, body.FailedCouriers)
	})
}

func TestCheckoutGetIncludesStatus(t *testing.T) {
	svc := &stubCheckout{session: checkout.NewSession()}
	rec := httptest.NewRecorder()
	CheckoutGet(svc, testLogger()).ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/checkout", nil), "sess-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "sess-1", svc.sid)
	var body map[string]any
	decodeData(t, rec, &body)
	require.Equal(t, "idle", body["status"])
	require.Equal(t, []any{}, body["shipping_quotes"])
}

func TestCheckoutSetAddressValidatesBody(t *testing.T) {
	svc := &stubCheckout{session: checkout.NewSession()}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/address", strings.NewReader(`{"recipient_name":"Budi"}`))
	rec := httptest.NewRecorder()
	CheckoutSetAddress(svc, testLogger()).ServeHTTP(rec, withSession(req, "sess-1"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, svc.address)
}

func TestCheckoutCalculateShippingFallsBackToSelectedAddress(t *testing.T) {
	session := checkout.NewSession()
	session.SelectedAddress = &checkout.AddressSnapshot{SubdistrictID: "2087"}
	svc := &stubCheckout{session: session}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/shipping", nil)
	rec := httptest.NewRecorder()
	CheckoutCalculateShipping(svc, testLogger()).ServeHTTP(rec, withSession(req, "sess-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2087", svc.destination)
}

func TestCheckoutCalculateShippingAcceptsEmptyChunkedBody(t *testing.T) {
	session := checkout.NewSession()
	session.SelectedAddress = &checkout.AddressSnapshot{SubdistrictID: "2087"}
	svc := &stubCheckout{session: session}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/shipping", nil)
	req.ContentLength = -1
	req.Body = io.NopCloser(strings.NewReader(""))
	rec := httptest.NewRecorder()
	CheckoutCalculateShipping(svc, testLogger()).ServeHTTP(rec, withSession(req, "sess-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2087", svc.destination)
}

func TestCheckoutCalculateShippingExplicitDestination(t *testing.T) {
	svc := &stubCheckout{session: checkout.NewSession()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/shipping", strings.NewReader(`{"destination_id":"5501"}`))
	rec := httptest.NewRecorder()
	CheckoutCalculateShipping(svc, testLogger()).ServeHTTP(rec, withSession(req, "sess-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "5501", svc.destination)
}

func TestCheckoutCalculateShippingReportsFailureInSession(t *testing.T) {
	failed := checkout.NewSession()
	msg := checkout.MsgShippingFailed
	failed.Error = &msg
	svc := &stubCheckout{session: checkout.NewSession(), calculated: failed}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/shipping", strings.NewReader(`{"destination_id":"5501"}`))
	rec := httptest.NewRecorder()
	CheckoutCalculateShipping(svc, testLogger()).ServeHTTP(rec, withSession(req, "sess-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeData(t, rec, &body)
	require.Equal(t, "failed", body["status"])
	require.Equal(t, checkout.MsgShippingFailed, body["error"])
}

func TestCheckoutSelectShippingStoresVerbatim(t *testing.T) {
	svc := &stubCheckout{session: checkout.NewSession()}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/shipping/selection", strings.NewReader(`{"courier_code":"zzz","service_name":"???","cost":-1}`))
	rec := httptest.NewRecorder()
	CheckoutSelectShipping(svc, testLogger()).ServeHTTP(rec, withSession(req, "sess-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.selection)
	require.Equal(t, "zzz", svc.selection.CourierCode)
	require.Equal(t, int64(-1), svc.selection.Cost)
}

func TestCheckoutClearReturnsNoContent(t *testing.T) {
	svc := &stubCheckout{session: checkout.NewSession()}
	rec := httptest.NewRecorder()
	CheckoutClear(svc, testLogger()).ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/checkout", nil), "sess-1"))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, svc.cleared)
}

func TestCheckoutNotificationsDrains(t *testing.T) {
	n := &stubNotifier{pending: []notify.Notification{{Level: notify.LevelWarning, Message: checkout.MsgNoShippingOptions}}}
	rec := httptest.NewRecorder()
	CheckoutNotifications(n, testLogger()).ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/checkout/notifications", nil), "sess-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var items []notify.Notification
	decodeData(t, rec, &items)
	require.Len(t, items, 1)
	require.Equal(t, checkout.MsgNoShippingOptions, items[0].Message)
	require.Empty(t, n.pending)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

type stubCatalog struct {
	page    catalog.GroupPage
	err     error
	token   string
	opts    catalog.ListOptions
	groupID string
}

func (s *stubCatalog) ListGroups(ctx context.Context, token string, opts catalog.ListOptions) (catalog.GroupPage, error) {
	s.token, s.opts = token, opts
	return s.page, s.err
}

func (s *stubCatalog) GetGroup(ctx context.Context, token, groupID string) (*catalog.GroupDetail, error) {
	s.token, s.groupID = token, groupID
	if s.err != nil {
		return nil, s.err
	}
	return &catalog.GroupDetail{ID: groupID}, nil
}

type stubRegions struct {
	cities     []rajaongkir.City
	provinceID string
}

func (s *stubRegions) Provinces(context.Context) ([]rajaongkir.Province, error) {
	return []rajaongkir.Province{}, nil
}

func (s *stubRegions) Cities(ctx context.Context, provinceID string) ([]rajaongkir.City, error) {
	s.provinceID = provinceID
	return s.cities, nil
}

func (s *stubRegions) Subdistricts(context.Context, string) ([]rajaongkir.Subdistrict, error) {
	return []rajaongkir.Subdistrict{}, nil
}

type stubQuoter struct {
	result      shipping.Result
	single      *shipping.CourierQuotes
	calls       int
	destination string
	courier     string
}

func (s *stubQuoter) QuoteAll(ctx context.Context, destinationID string) (shipping.Result, error) {
	s.calls++
	s.destination = destinationID
	return s.result, nil
}

func (s *stubQuoter) QuoteCourier(ctx context.Context, destinationID, courierCode string) (*shipping.CourierQuotes, error) {
	s.calls++
	s.destination, s.courier = destinationID, courierCode
	return s.single, nil
}

type stubCheckout struct {
	session     *checkout.Session
	calculated  *checkout.Session
	sid         string
	address     *checkout.AddressSnapshot
	selection   *checkout.ShippingSelection
	destination string
	cleared     bool
}

func (s *stubCheckout) Get(ctx context.Context, sessionID string) (*checkout.Session, error) {
	s.sid = sessionID
	return s.session.Clone(), nil
}

func (s *stubCheckout) SetSelectedAddress(ctx context.Context, sessionID string, addr checkout.AddressSnapshot) (*checkout.Session, error) {
	s.address = &addr
	s.session.SelectedAddress = &addr
	return s.session.Clone(), nil
}

func (s *stubCheckout) CalculateShipping(ctx context.Context, sessionID, destinationID string) (*checkout.Session, error) {
	s.destination = destinationID
	if s.calculated != nil {
		return s.calculated, nil
	}
	return s.session.Clone(), nil
}

func (s *stubCheckout) SetSelectedShipping(ctx context.Context, sessionID string, selection checkout.ShippingSelection) (*checkout.Session, error) {
	s.selection = &selection
	return s.session.Clone(), nil
}

func (s *stubCheckout) ClearCheckout(ctx context.Context, sessionID string) error {
	s.cleared = true
	return nil
}

type stubNotifier struct {
	pending []notify.Notification
}

func (s *stubNotifier) Notify(ctx context.Context, sessionID string, n notify.Notification) error {
	s.pending = append(s.pending, n)
	return nil
}

func (s *stubNotifier) Drain(ctx context.Context, sessionID string) ([]notify.Notification, error) {
	out := s.pending
	s.pending = nil
	return out, nil
}
