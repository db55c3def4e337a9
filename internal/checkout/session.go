package checkout

import (
	"sync"
	"time"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/shipping"
)

// Session is one walk through the checkout pipeline. Its mutex serializes
// pipeline steps, so a double submit runs one after the other and the second
// one sees the committed status.
type Session struct {
	mu sync.Mutex

	id             string
	idempotencyKey string
	createdAt      time.Time

	status   domain.CheckoutStatus
	address  *domain.Address
	shipping *shipping.Selector
	payment  domain.PaymentDraft

	orderID        int64
	paymentSession *api.PaymentSession
	redirectURL    string
}

func (s *Session) ID() string { return s.id }

func (s *Session) Status() domain.CheckoutStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// View is a read-only copy of a session.
type View struct {
	ID               string                  `json:"id"`
	Status           domain.CheckoutStatus   `json:"status"`
	CreatedAt        time.Time               `json:"created_at"`
	Address          *domain.Address         `json:"address,omitempty"`
	ShippingOptions  []domain.ShippingOption `json:"shipping_options"`
	SelectedShipping *domain.ShippingOption  `json:"selected_shipping,omitempty"`
	Payment          domain.PaymentDraft     `json:"payment"`
	OrderID          int64                   `json:"order_id,omitempty"`
	PaymentID        string                  `json:"payment_id,omitempty"`
	RedirectURL      string                  `json:"redirect_url,omitempty"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		ID:               s.id,
		Status:           s.status,
		CreatedAt:        s.createdAt,
		ShippingOptions:  s.shipping.Options(),
		SelectedShipping: s.shipping.Selected(),
		Payment:          s.payment,
		OrderID:          s.orderID,
		RedirectURL:      s.redirectURL,
	}
	if v.ShippingOptions == nil {
		v.ShippingOptions = []domain.ShippingOption{}
	}
	if s.address != nil {
		a := *s.address
		v.Address = &a
	}
	if s.paymentSession != nil {
		v.PaymentID = s.paymentSession.PaymentID.String()
	}
	return v
}

// Registry keeps the sessions that are in progress.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete discards a session. Nothing is rolled back on the backend.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
