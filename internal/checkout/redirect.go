package checkout

import (
	"fmt"
	"strings"

	"github.com/fjod/storefront/internal/api"
)

// RedirectPreference picks which payment URL is used when the backend
// returns both.
type RedirectPreference string

const (
	PreferProduction RedirectPreference = "production"
	PreferSandbox    RedirectPreference = "sandbox"
)

func ParseRedirectPreference(s string) (RedirectPreference, error) {
	switch p := RedirectPreference(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PreferProduction, nil
	case PreferProduction, PreferSandbox:
		return p, nil
	}
	return "", fmt.Errorf("unknown redirect preference %q", s)
}

// Pick returns the preferred URL, or the other one when the preferred one is
// missing.
func (p RedirectPreference) Pick(s *api.PaymentSession) (string, bool) {
	if s == nil {
		return "", false
	}
	first, second := s.InitPoint, s.SandboxInitPoint
	if p == PreferSandbox {
		first, second = second, first
	}
	if first != "" {
		return first, true
	}
	return second, second != ""
}
