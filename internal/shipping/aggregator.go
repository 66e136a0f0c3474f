package shipping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/metrics"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/money"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/rajaongkir"
)

const (
	defaultWeightGrams = 1000

	fanoutReady  = "ready"
	fanoutEmpty  = "empty"
	fanoutFailed = "failed"
)

// RateProvider quotes one courier for one origin/destination pair.
type RateProvider interface {
	Cost(ctx context.Context, req rajaongkir.CostRequest) ([]rajaongkir.CostResult, error)
}

// QuoteRequest is the per-courier request the aggregator issues.
type QuoteRequest struct {
	DestinationID string
	OriginID      string
	WeightGrams   int
	CourierCode   string
}

// Quote is one priced service option.
type Quote struct {
	CourierCode   string `json:"courier_code"`
	ServiceName   string `json:"service_name"`
	Cost          int64  `json:"cost"`
	CostLabel     string `json:"cost_label"`
	EstimatedDays string `json:"estimated_days"`
	Description   string `json:"description"`
}

// CourierQuotes groups the services one courier offered.
type CourierQuotes struct {
	CourierCode string  `json:"courier_code"`
	CourierName string  `json:"courier_name"`
	Services    []Quote `json:"services"`
}

// Result is the outcome of a fan-out. Failed lists couriers whose request errored.
type Result struct {
	Quotes []CourierQuotes
	Failed []string
}

type Options struct {
	OriginID    string
	WeightGrams int
	Metrics     *metrics.ShippingMetrics
	Logger      *logger.Logger
}

// Aggregator fans a destination out to every registered courier.
type Aggregator struct {
	provider RateProvider
	registry *Registry
	originID string
	weight   int
	metrics  *metrics.ShippingMetrics
	logg     *logger.Logger
}

func NewAggregator(provider RateProvider, registry *Registry, opts Options) (*Aggregator, error) {
	if provider == nil {
		return nil, fmt.Errorf("rate provider is required")
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("courier registry is required")
	}
	origin := strings.TrimSpace(opts.OriginID)
	if origin == "" {
		return nil, fmt.Errorf("origin id is required")
	}
	weight := opts.WeightGrams
	if weight <= 0 {
		weight = defaultWeightGrams
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Aggregator{
		provider: provider,
		registry: registry,
		originID: origin,
		weight:   weight,
		metrics:  opts.Metrics,
		logg:     logg,
	}, nil
}

// QuoteAll requests every courier concurrently and waits for all of them.
// Individual failures and empty cost lists are dropped; quotes keep registry
// order. It fails only when every courier request failed.
func (a *Aggregator) QuoteAll(ctx context.Context, destinationID string) (Result, error) {
	dest := strings.TrimSpace(destinationID)
	if dest == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}

	start := time.Now()
	couriers := a.registry.Couriers()
	slots := make([]*CourierQuotes, len(couriers))
	errs := make([]error, len(couriers))

	var g errgroup.Group
	for i, courier := range couriers {
		g.Go(func() error {
			slots[i], errs[i] = a.quote(ctx, dest, courier)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Quotes: []CourierQuotes{}, Failed: []string{}}
	var combined error
	for i, courier := range couriers {
		switch {
		case errs[i] != nil:
			result.Failed = append(result.Failed, courier.Code)
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", courier.Code, errs[i]))
			a.metrics.IncCourier(courier.Code, metrics.OutcomeError)
			a.logg.Warn(a.logg.WithFields(ctx, map[string]any{
				"courier":     courier.Code,
				"destination": dest,
				"error":       errs[i].Error(),
			}), "shipping.courier_quote_failed")
		case slots[i] == nil || len(slots[i].Services) == 0:
			a.metrics.IncCourier(courier.Code, metrics.OutcomeEmpty)
		default:
			a.metrics.IncCourier(courier.Code, metrics.OutcomeOK)
			result.Quotes = append(result.Quotes, *slots[i])
		}
	}

	if len(result.Failed) == len(couriers) {
		a.metrics.ObserveFanout(fanoutFailed, time.Since(start))
		return Result{Quotes: []CourierQuotes{}, Failed: result.Failed},
			pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "every courier quote failed")
	}

	outcome := fanoutReady
	if len(result.Quotes) == 0 {
		outcome = fanoutEmpty
	}
	a.metrics.ObserveFanout(outcome, time.Since(start))
	a.logg.Debug(a.logg.WithFields(ctx, map[string]any{
		"destination": dest,
		"couriers":    len(couriers),
		"quoted":      len(result.Quotes),
		"failed":      len(result.Failed),
	}), "shipping.quote_all")
	return result, nil
}

// QuoteCourier quotes a single registered courier. An empty service list is not an error.
func (a *Aggregator) QuoteCourier(ctx context.Context, destinationID, courierCode string) (*CourierQuotes, error) {
	dest := strings.TrimSpace(destinationID)
	if dest == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}
	courier, ok := a.registry.Lookup(courierCode)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown courier %q", strings.TrimSpace(courierCode)))
	}

	quotes, err := a.quote(ctx, dest, courier)
	if err != nil {
		a.metrics.IncCourier(courier.Code, metrics.OutcomeError)
		return nil, err
	}
	if quotes == nil {
		a.metrics.IncCourier(courier.Code, metrics.OutcomeEmpty)
		return &CourierQuotes{CourierCode: courier.Code, CourierName: courier.DisplayName, Services: []Quote{}}, nil
	}
	a.metrics.IncCourier(courier.Code, metrics.OutcomeOK)
	return quotes, nil
}

// Request builds the provider request for a courier.
func (a *Aggregator) Request(destinationID string, courier Courier) QuoteRequest {
	return QuoteRequest{
		DestinationID: destinationID,
		OriginID:      a.originID,
		WeightGrams:   a.weight,
		CourierCode:   courier.Code,
	}
}

func (a *Aggregator) quote(ctx context.Context, dest string, courier Courier) (*CourierQuotes, error) {
	req := a.Request(dest, courier)
	results, err := a.provider.Cost(ctx, rajaongkir.CostRequest{
		OriginID:      req.OriginID,
		DestinationID: req.DestinationID,
		WeightGrams:   req.WeightGrams,
		Courier:       req.CourierCode,
	})
	if err != nil {
		return nil, err
	}

	services := []Quote{}
	for _, r := range results {
		for _, c := range r.Costs {
			services = append(services, Quote{
				CourierCode:   courier.Code,
				ServiceName:   c.Service,
				Cost:          c.Value,
				CostLabel:     money.FormatIDR(float64(c.Value)),
				EstimatedDays: c.ETD,
				Description:   c.Description,
			})
		}
	}
	if len(services) == 0 {
		return nil, nil
	}
	return &CourierQuotes{
		CourierCode: courier.Code,
		CourierName: courier.DisplayName,
		Services:    services,
	}, nil
}
