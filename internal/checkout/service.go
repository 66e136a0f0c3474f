package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/rinaldiihsan/sixstreet-sub001/internal/notify"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/shipping"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/metrics"
)

const (
	MsgShippingFailed     = "Gagal menghitung ongkos kirim. Silakan coba lagi."
	MsgNoShippingOptions  = "Tidak ada layanan pengiriman yang tersedia untuk alamat ini."
	MsgAddressSelected    = "Alamat pengiriman berhasil dipilih."
	defaultCalcTimeout    = 20 * time.Second
	applyTimeout          = 5 * time.Second
	calculationLogMessage = "checkout.calculate_shipping"
)

// Quoter runs the courier fan-out for a destination.
type Quoter interface {
	QuoteAll(ctx context.Context, destinationID string) (shipping.Result, error)
}

type Service interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	SetSelectedAddress(ctx context.Context, sessionID string, addr AddressSnapshot) (*Session, error)
	CalculateShipping(ctx context.Context, sessionID, destinationID string) (*Session, error)
	SetSelectedShipping(ctx context.Context, sessionID string, selection ShippingSelection) (*Session, error)
	ClearCheckout(ctx context.Context, sessionID string) error
}

type ServiceParams struct {
	Store              Store
	Quoter             Quoter
	Notifier           notify.Notifier
	Metrics            *metrics.ShippingMetrics
	Logger             *logger.Logger
	CalculationTimeout time.Duration
}

type service struct {
	store       Store
	quoter      Quoter
	notifier    notify.Notifier
	metrics     *metrics.ShippingMetrics
	logg        *logger.Logger
	calcTimeout time.Duration
	locks       *keyedMutex
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout store is required")
	}
	if params.Quoter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shipping quoter is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.CalculationTimeout
	if timeout <= 0 {
		timeout = defaultCalcTimeout
	}
	return &service{
		store:       params.Store,
		quoter:      params.Quoter,
		notifier:    params.Notifier,
		metrics:     params.Metrics,
		logg:        logg,
		calcTimeout: timeout,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}, nil
}

// Get returns the stored session, or a fresh empty one on first use.
func (s *service) Get(ctx context.Context, sessionID string) (*Session, error) {
	sid, err := requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, sid)
}

func (s *service) SetSelectedAddress(ctx context.Context, sessionID string, addr AddressSnapshot) (*Session, error) {
	sid, err := requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	session, err := s.mutate(ctx, sid, func(session *Session) {
		snapshot := addr
		session.SelectedAddress = &snapshot
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, sid, notify.LevelSuccess, MsgAddressSelected)
	return session, nil
}

// CalculateShipping persists the loading state under a new generation, runs
// the fan-out, and applies the outcome only if no newer calculation or clear
// has happened meanwhile. Batch failures are reported through the session.
func (s *service) CalculateShipping(ctx context.Context, sessionID, destinationID string) (*Session, error) {
	sid, err := requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	dest := strings.TrimSpace(destinationID)
	if dest == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}

	var generation uint64
	if _, err := s.mutate(ctx, sid, func(session *Session) {
		session.Generation++
		generation = session.Generation
		session.Loading = true
		session.Error = nil
		session.ShippingQuotes = []shipping.CourierQuotes{}
		session.CalculatedAt = nil
	}); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"destination": dest,
		"generation":  generation,
	})

	// The fan-out and the write-back outlive a disconnected client so the
	// session never stays loading.
	detached := context.WithoutCancel(ctx)
	calcCtx, cancelCalc := context.WithTimeout(detached, s.calcTimeout)
	result, quoteErr := s.quoter.QuoteAll(calcCtx, dest)
	cancelCalc()

	applyCtx, cancelApply := context.WithTimeout(detached, applyTimeout)
	defer cancelApply()

	var (
		stale      bool
		noticeLvl  notify.Level
		noticeText string
	)
	session, err := s.mutate(applyCtx, sid, func(session *Session) {
		if session.Generation != generation {
			stale = true
			return
		}
		session.Loading = false
		if quoteErr != nil {
			msg := MsgShippingFailed
			session.Error = &msg
			session.ShippingQuotes = []shipping.CourierQuotes{}
			noticeLvl, noticeText = notify.LevelError, MsgShippingFailed
			return
		}
		now := s.now().UTC()
		session.ShippingQuotes = result.Quotes
		session.CalculatedAt = &now
		if len(result.Quotes) == 0 {
			noticeLvl, noticeText = notify.LevelWarning, MsgNoShippingOptions
		}
	})
	if err != nil {
		return nil, err
	}

	switch {
	case stale:
		s.metrics.IncStale()
		s.logg.Info(s.logg.WithField(logCtx, "current_generation", session.Generation), calculationLogMessage+".stale")
		return session, nil
	case quoteErr != nil:
		s.logg.Error(logCtx, calculationLogMessage+".failed", quoteErr)
	default:
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"couriers": len(result.Quotes),
			"failed":   result.Failed,
		}), calculationLogMessage)
	}
	if noticeText != "" {
		s.notify(applyCtx, sid, noticeLvl, noticeText)
	}
	return session, nil
}

// SetSelectedShipping stores the selection verbatim; it is not checked against the current quotes.
func (s *service) SetSelectedShipping(ctx context.Context, sessionID string, selection ShippingSelection) (*Session, error) {
	sid, err := requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sid, func(session *Session) {
		sel := selection
		courier := sel.CourierCode
		session.SelectedShipping = &sel
		session.SelectedCourier = &courier
	})
}

// ClearCheckout resets the session to its initial state. The generation keeps
// counting so in-flight calculations are discarded.
func (s *service) ClearCheckout(ctx context.Context, sessionID string) error {
	sid, err := requireSession(sessionID)
	if err != nil {
		return err
	}
	_, err = s.mutate(ctx, sid, func(session *Session) {
		generation := session.Generation + 1
		*session = *NewSession()
		session.Generation = generation
	})
	return err
}

// mutate loads, applies fn and saves under the per-session lock.
func (s *service) mutate(ctx context.Context, sid string, fn func(*Session)) (*Session, error) {
	unlock := s.locks.Lock(sid)
	defer unlock()

	session, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	fn(session)
	session.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, sid, session); err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

func (s *service) load(ctx context.Context, sid string) (*Session, error) {
	session, err := s.store.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return NewSession(), nil
	}
	return session.normalize(), nil
}

func (s *service) notify(ctx context.Context, sid string, level notify.Level, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, sid, notify.Notification{Level: level, Message: message}); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.notify_failed")
	}
}

func requireSession(sessionID string) (string, error) {
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "checkout session is required")
	}
	return sid, nil
}
