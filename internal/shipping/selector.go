package shipping

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrUnknownOption = errors.New("shipping option not offered")

// Selector holds the quoted options for one checkout and the current choice.
// Refresh re-quotes and resets the choice to the cheapest option whenever the
// request content changed.
type Selector struct {
	quoter Quoter
	logger *zap.Logger
	sfg    singleflight.Group // coalesces identical in-flight quotes

	mu          sync.Mutex
	options     []domain.ShippingOption
	selected    *domain.ShippingOption
	fingerprint uint64
}

func NewSelector(quoter Quoter, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{quoter: quoter, logger: logger}
}

// Refresh quotes the cart for addr and returns the selected option, or nil
// when nothing can be quoted. With no address or no products the selection is
// cleared without calling the quoter.
func (s *Selector) Refresh(ctx context.Context, state domain.CartState, addr *domain.Address) (*domain.ShippingOption, error) {
	req, err := BuildQuoteRequest(state, addr)
	if errors.Is(err, ErrNoAddress) || errors.Is(err, ErrNoProducts) {
		s.Reset()
		return nil, nil
	}
	if err != nil {
		s.Reset()
		return nil, err
	}

	fp := Fingerprint(req)
	v, err, shared := s.sfg.Do(strconv.FormatUint(fp, 16), func() (interface{}, error) {
		return s.quoter.Quote(ctx, req)
	})
	if err != nil {
		s.Reset()
		s.logger.Warn("shipping quote failed", zap.String("cep", req.DestinationCEP), zap.Error(err))
		return nil, err
	}
	options := v.([]domain.ShippingOption)

	s.mu.Lock()
	defer s.mu.Unlock()

	// same cart and address: keep an explicit choice if it is still offered
	if fp == s.fingerprint && s.selected != nil {
		if o, ok := findOption(options, s.selected.CarrierCode); ok {
			s.options = cloneOptions(options)
			s.selected = &o
			return copyOption(s.selected), nil
		}
	}

	s.fingerprint = fp
	s.options = cloneOptions(options)
	s.selected = nil
	if best, ok := CheapestOption(options); ok {
		s.selected = &best
	}
	s.logger.Debug("shipping quoted",
		zap.String("cep", req.DestinationCEP),
		zap.Int("options", len(options)),
		zap.Bool("shared", shared))
	return copyOption(s.selected), nil
}

// Current reports whether the held quote was made for this cart and address.
// A cart with nothing to ship is current only while nothing is selected.
func (s *Selector) Current(state domain.CartState, addr *domain.Address) bool {
	req, err := BuildQuoteRequest(state, addr)

	s.mu.Lock()
	defer s.mu.Unlock()

	if errors.Is(err, ErrNoAddress) || errors.Is(err, ErrNoProducts) {
		return s.selected == nil
	}
	if err != nil || s.options == nil {
		return false
	}
	return Fingerprint(req) == s.fingerprint
}

// Select overrides the default with an option from the current quote.
func (s *Selector) Select(carrierCode string) (domain.ShippingOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := findOption(s.options, carrierCode)
	if !ok {
		return domain.ShippingOption{}, ErrUnknownOption
	}
	s.selected = &o
	return o, nil
}

func (s *Selector) Selected() *domain.ShippingOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOption(s.selected)
}

func (s *Selector) Options() []domain.ShippingOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOptions(s.options)
}

// Reset drops the options and the selection.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = nil
	s.selected = nil
	s.fingerprint = 0
}

func findOption(options []domain.ShippingOption, carrierCode string) (domain.ShippingOption, bool) {
	for _, o := range options {
		if o.CarrierCode == carrierCode {
			return o, true
		}
	}
	return domain.ShippingOption{}, false
}

func cloneOptions(options []domain.ShippingOption) []domain.ShippingOption {
	if options == nil {
		return nil
	}
	out := make([]domain.ShippingOption, len(options))
	copy(out, options)
	return out
}

func copyOption(o *domain.ShippingOption) *domain.ShippingOption {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}
