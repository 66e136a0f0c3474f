package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rinaldiihsan/sixstreet-sub001/internal/notify"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/shipping"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/metrics"
)

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	saves    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]*Session{}}
}

func (m *memoryStore) Load(ctx context.Context, sid string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sid].Clone(), nil
}

func (m *memoryStore) Save(ctx context.Context, sid string, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.sessions[sid] = s.Clone()
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sid)
	return nil
}

type quoterFunc func(ctx context.Context, dest string) (shipping.Result, error)

func (f quoterFunc) QuoteAll(ctx context.Context, dest string) (shipping.Result, error) {
	return f(ctx, dest)
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, sid string, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	return nil
}

func (r *recordingNotifier) Drain(ctx context.Context, sid string) ([]notify.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	return out, nil
}

func jneQuotes() []shipping.CourierQuotes {
	return []shipping.CourierQuotes{{
		CourierCode: "jne",
		CourierName: "JNE",
		Services:    []shipping.Quote{{CourierCode: "jne", ServiceName: "REG", Cost: 15000, EstimatedDays: "2-3"}},
	}}
}

func newTestService(t *testing.T, q Quoter) (*service, *memoryStore, *recordingNotifier, *metrics.ShippingMetrics) {
	t.Helper()
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	m := metrics.NewShippingMetrics(prometheus.NewRegistry())
	svc, err := NewService(ServiceParams{Store: store, Quoter: q, Notifier: notifier, Metrics: m})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc.(*service), store, notifier, m
}

func TestGetReturnsFreshSession(t *testing.T) {
	svc, store, _, _ := newTestService(t, quoterFunc(func(context.Context, string) (shipping.Result, error) {
		return shipping.Result{}, nil
	}))

	session, err := svc.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.Status() != StatusIdle || session.ShippingQuotes == nil {
		t.Fatalf("unexpected fresh session %+v", session)
	}
	if store.saves != 0 {
		t.Fatal("reading a session must not persist it")
	}

	if _, err := svc.Get(context.Background(), " "); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCalculateShippingReady(t *testing.T) {
	svc, _, notifier, _ := newTestService(t, quoterFunc(func(ctx context.Context, dest string) (shipping.Result, error) {
		if dest != "3917" {
			t.Fatalf("unexpected destination %q", dest)
		}
		return shipping.Result{Quotes: jneQuotes(), Failed: []string{"pos"}}, nil
	}))

	session, err := svc.CalculateShipping(context.Background(), "s1", " 3917 ")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if session.Loading || session.Error != nil || session.Status() != StatusReady {
		t.Fatalf("unexpected state %+v", session)
	}
	if len(session.ShippingQuotes) != 1 || session.ShippingQuotes[0].CourierCode != "jne" {
		t.Fatalf("unexpected quotes %+v", session.ShippingQuotes)
	}
	if len(notifier.items) != 0 {
		t.Fatalf("no notification expected, got %+v", notifier.items)
	}
}

func TestCalculateShippingEmptyNotifiesWithoutError(t *testing.T) {
	svc, _, notifier, _ := newTestService(t, quoterFunc(func(context.Context, string) (shipping.Result, error) {
		return shipping.Result{Quotes: []shipping.CourierQuotes{}}, nil
	}))

	session, err := svc.CalculateShipping(context.Background(), "s1", "3917")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if session.Error != nil || session.Loading || len(session.ShippingQuotes) != 0 {
		t.Fatalf("unexpected state %+v", session)
	}
	if len(notifier.items) != 1 || notifier.items[0].Message != MsgNoShippingOptions {
		t.Fatalf("expected no-options notification, got %+v", notifier.items)
	}
}

func TestCalculateShippingHardFailure(t *testing.T) {
	svc, _, notifier, _ := newTestService(t, quoterFunc(func(context.Context, string) (shipping.Result, error) {
		return shipping.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("all down"), "every courier quote failed")
	}))

	session, err := svc.CalculateShipping(context.Background(), "s1", "3917")
	if err != nil {
		t.Fatalf("batch failure is reported through the session, got %v", err)
	}
	if session.Error == nil || *session.Error != MsgShippingFailed {
		t.Fatalf("expected error message, got %+v", session.Error)
	}
	if session.Loading || len(session.ShippingQuotes) != 0 || session.Status() != StatusFailed {
		t.Fatalf("unexpected state %+v", session)
	}
	if len(notifier.items) != 1 || notifier.items[0].Level != notify.LevelError {
		t.Fatalf("expected error notification, got %+v", notifier.items)
	}
}

func TestCalculateShippingErrorResetsOnNextAttempt(t *testing.T) {
	fail := true
	svc, _, _, _ := newTestService(t, quoterFunc(func(context.Context, string) (shipping.Result, error) {
		if fail {
			return shipping.Result{}, errors.New("down")
		}
		return shipping.Result{Quotes: jneQuotes()}, nil
	}))

	if _, err := svc.CalculateShipping(context.Background(), "s1", "1"); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	fail = false
	session, err := svc.CalculateShipping(context.Background(), "s1", "1")
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if session.Error != nil || session.Status() != StatusReady {
		t.Fatalf("error must reset on a new attempt, got %+v", session)
	}
}

func TestCalculateShippingValidationLeavesStateUntouched(t *testing.T) {
	svc, store, _, _ := newTestService(t, quoterFunc(func(context.Context, string) (shipping.Result, error) {
		t.Fatal("quoter must not run")
		return shipping.Result{}, nil
	}))

	_, err := svc.CalculateShipping(context.Background(), "s1", "")
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.saves != 0 {
		t.Fatal("validation failure must not touch the session")
	}
}

func TestCalculateShippingDiscardsStaleResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	svc, _, _, m := newTestService(t, quoterFunc(func(ctx context.Context, dest string) (shipping.Result, error) {
		if dest == "slow" {
			close(started)
			<-release
			return shipping.Result{Quotes: []shipping.CourierQuotes{{CourierCode: "pos", Services: []shipping.Quote{{ServiceName: "OLD"}}}}}, nil
		}
		return shipping.Result{Quotes: jneQuotes()}, nil
	}))
	ctx := context.Background()

	type outcome struct {
		session *Session
		err     error
	}
	slowDone := make(chan outcome, 1)
	go func() {
		s, err := svc.CalculateShipping(ctx, "s1", "slow")
		slowDone <- outcome{s, err}
	}()
	<-started

	observed, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !observed.Loading || observed.Status() != StatusLoading || len(observed.ShippingQuotes) != 0 {
		t.Fatalf("loading state must be observable during the fan-out, got %+v", observed)
	}

	fast, err := svc.CalculateShipping(ctx, "s1", "fast")
	if err != nil {
		t.Fatalf("fast calculate: %v", err)
	}
	if fast.Generation != 2 {
		t.Fatalf("expected generation 2, got %d", fast.Generation)
	}

	close(release)
	slow := <-slowDone
	if slow.err != nil {
		t.Fatalf("slow calculate: %v", slow.err)
	}

	final, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(final.ShippingQuotes) != 1 || final.ShippingQuotes[0].CourierCode != "jne" {
		t.Fatalf("stale result overwrote newer quotes: %+v", final.ShippingQuotes)
	}
	if final.Loading {
		t.Fatal("session must not be left loading")
	}
	if got := testutil.ToFloat64(m.StaleCounter()); got != 1 {
		t.Fatalf("expected one stale discard, got %v", got)
	}
}

// ctxStore fails like a network-backed store once the caller's context is done.
type ctxStore struct {
	*memoryStore
}

func (c ctxStore) Load(ctx context.Context, sid string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	return c.memoryStore.Load(ctx, sid)
}

func (c ctxStore) Save(ctx context.Context, sid string, s *Session) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout session")
	}
	return c.memoryStore.Save(ctx, sid, s)
}

func TestCalculateShippingAppliesResultAfterClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := ctxStore{newMemoryStore()}
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		Store:    store,
		Notifier: notifier,
		Quoter: quoterFunc(func(qctx context.Context, dest string) (shipping.Result, error) {
			cancel()
			if qctx.Err() != nil {
				t.Fatal("fan-out context must not follow the request context")
			}
			return shipping.Result{Quotes: jneQuotes()}, nil
		}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	session, err := svc.CalculateShipping(ctx, "s1", "3917")
	if err != nil {
		t.Fatalf("calculate after disconnect: %v", err)
	}
	if session.Loading || session.Status() != StatusReady {
		t.Fatalf("unexpected returned state %+v", session)
	}

	stored, err := svc.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Loading || len(stored.ShippingQuotes) != 1 {
		t.Fatalf("session left loading after disconnect: %+v", stored)
	}
}

func TestClearCheckoutDiscardsInFlightCalculation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	svc, _, _, _ := newTestService(t, quoterFunc(func(context.Context, string) (shipping.Result, error) {
		close(started)
		<-release
		return shipping.Result{Quotes: jneQuotes()}, nil
	}))
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.CalculateShipping(ctx, "s1", "3917")
	}()
	<-started

	if err := svc.ClearCheckout(ctx, "s1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	close(release)
	<-done

	session, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.Status() != StatusIdle || len(session.ShippingQuotes) != 0 || session.Loading {
		t.Fatalf("expected initial state after clear, got %+v", session)
	}
}

func TestSelectionsAndClear(t *testing.T) {
	svc, _, notifier, _ := newTestService(t, quoterFunc(func(context.Context, string) (shipping.Result, error) {
		return shipping.Result{Quotes: jneQuotes()}, nil
	}))
	ctx := context.Background()

	addr := AddressSnapshot{RecipientName: "Rina", Phone: "0812", AddressLine: "Jl. Braga 1", ProvinceID: "9", CityID: "23", SubdistrictID: "3917"}
	session, err := svc.SetSelectedAddress(ctx, "s1", addr)
	if err != nil {
		t.Fatalf("set address: %v", err)
	}
	addr.RecipientName = "changed"
	if session.SelectedAddress.RecipientName != "Rina" {
		t.Fatal("address must be stored as a snapshot")
	}
	if len(notifier.items) != 1 || notifier.items[0].Level != notify.LevelSuccess {
		t.Fatalf("expected confirmation notification, got %+v", notifier.items)
	}

	// Not present in any quote: stored verbatim.
	session, err = svc.SetSelectedShipping(ctx, "s1", ShippingSelection{CourierCode: "sicepat", ServiceName: "BEST", Cost: 9000})
	if err != nil {
		t.Fatalf("set shipping: %v", err)
	}
	if session.SelectedCourier == nil || *session.SelectedCourier != "sicepat" || session.SelectedShipping.Cost != 9000 {
		t.Fatalf("unexpected selection %+v", session)
	}

	if err := svc.ClearCheckout(ctx, "s1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cleared, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cleared.SelectedAddress != nil || cleared.SelectedShipping != nil || cleared.SelectedCourier != nil {
		t.Fatalf("expected empty session, got %+v", cleared)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewService(ServiceParams{Store: newMemoryStore()}); err == nil {
		t.Fatal("expected error without quoter")
	}
}
