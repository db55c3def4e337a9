package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/events"
	"github.com/fjod/storefront/internal/kvstore"
	"github.com/fjod/storefront/internal/shipping"
	"github.com/shopspring/decimal"
)

type mockOrders struct {
	m     sync.Mutex
	id    int64
	err   error
	calls []api.CreateOrderRequest
	delay time.Duration
	// onCreate runs after the backend accepted the order.
	onCreate func()
}

func (o *mockOrders) CreateOrder(_ context.Context, req api.CreateOrderRequest) (int64, error) {
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	if o.onCreate != nil && o.err == nil {
		defer o.onCreate()
	}
	o.m.Lock()
	defer o.m.Unlock()
	o.calls = append(o.calls, req)
	if o.err != nil {
		return 0, o.err
	}
	return o.id, nil
}

func (o *mockOrders) callCount() int {
	o.m.Lock()
	defer o.m.Unlock()
	return len(o.calls)
}

type mockPayments struct {
	m       sync.Mutex
	session *api.PaymentSession
	err     error
	calls   []api.CreatePaymentRequest
}

func (p *mockPayments) CreatePaymentSession(_ context.Context, req api.CreatePaymentRequest) (*api.PaymentSession, error) {
	p.m.Lock()
	defer p.m.Unlock()
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	s := *p.session
	return &s, nil
}

func (p *mockPayments) setErr(err error) {
	p.m.Lock()
	defer p.m.Unlock()
	p.err = err
}

type mockQuoter struct {
	m       sync.Mutex
	options []domain.ShippingOption
	err     error
	calls   int
}

func (q *mockQuoter) Quote(context.Context, shipping.QuoteRequest) ([]domain.ShippingOption, error) {
	q.m.Lock()
	defer q.m.Unlock()
	q.calls++
	if q.err != nil {
		return nil, q.err
	}
	return q.options, nil
}

func (q *mockQuoter) callCount() int {
	q.m.Lock()
	defer q.m.Unlock()
	return q.calls
}

type mockOpener struct {
	m       sync.Mutex
	can     bool
	openErr error
	opened  []string
}

func (o *mockOpener) CanOpen(string) bool {
	o.m.Lock()
	defer o.m.Unlock()
	return o.can
}

func (o *mockOpener) Open(url string) error {
	o.m.Lock()
	defer o.m.Unlock()
	if o.openErr != nil {
		return o.openErr
	}
	o.opened = append(o.opened, url)
	return nil
}

type mockPublisher struct {
	m      sync.Mutex
	events []events.Event
	err    error
}

func (p *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err != nil {
		return p.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

func (p *mockPublisher) types() []events.Type {
	p.m.Lock()
	defer p.m.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// failingCart lets Snapshot or Consume fail on demand.
type failingCart struct {
	*cart.Repository
	snapshotErr error
	consumeErr  error
}

func (c *failingCart) Snapshot(ctx context.Context) (domain.CartState, error) {
	if c.snapshotErr != nil {
		return domain.CartState{}, c.snapshotErr
	}
	return c.Repository.Snapshot(ctx)
}

func (c *failingCart) Consume(ctx context.Context, state domain.CartState) error {
	if c.consumeErr != nil {
		return c.consumeErr
	}
	return c.Repository.Consume(ctx, state)
}

var errBackend = &api.RemoteError{Op: "test", StatusCode: 503, Message: "unavailable"}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	repo      *cart.Repository
	orders    *mockOrders
	payments  *mockPayments
	quoter    *mockQuoter
	opener    *mockOpener
	publisher *mockPublisher
	orch      *Orchestrator
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		repo:   cart.NewRepository(kvstore.NewMemoryStore()),
		orders: &mockOrders{id: 42},
		payments: &mockPayments{session: &api.PaymentSession{
			PaymentID:         "pay-1",
			PreferenceID:      "pref-1",
			InitPoint:         "https://pay.example.com/checkout?pref=1",
			SandboxInitPoint:  "https://sandbox.pay.example.com/checkout?pref=1",
			TransactionAmount: dec("94.90"),
		}},
		quoter: &mockQuoter{options: []domain.ShippingOption{
			{CarrierCode: "SEDEX", Price: dec("20.00")},
			{CarrierCode: "PAC", Price: dec("15.00")},
			{CarrierCode: "JADLOG", Price: dec("18.00")},
		}},
		opener:    &mockOpener{can: true},
		publisher: &mockPublisher{},
	}
	base := []Option{WithOpener(f.opener), WithPublisher(f.publisher)}
	f.orch = NewOrchestrator(
		f.repo,
		NewOrderHandler(f.orders, time.Second),
		NewPaymentHandler(f.payments, time.Second),
		f.quoter,
		append(base, opts...)...,
	)
	return f
}

func (f *fixture) fillCart(ctx context.Context) error {
	if _, err := f.repo.Products().Add(ctx, domain.Product{ID: 1, Price: dec("10.00")}, 3); err != nil {
		return err
	}
	_, err := f.repo.Vouchers().Add(ctx, domain.Voucher{ID: 5, Price: dec("49.90")}, 1)
	return err
}

func validAddress() domain.Address {
	return domain.Address{ID: 11, Street: "Rua Augusta", Number: "500", City: "São Paulo", State: "SP", PostalCode: "01305-000"}
}

func validDraft() domain.PaymentDraft {
	return domain.PaymentDraft{
		Method:       domain.PaymentMethodCreditCard,
		Installments: 2,
		PayerEmail:   "ana@example.com",
		PayerTaxID:   "12345678901",
	}
}

var errPublish = errors.New("kafka down")
