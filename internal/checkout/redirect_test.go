package checkout

import (
	"testing"

	"github.com/fjod/storefront/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedirectPreference(t *testing.T) {
	p, err := ParseRedirectPreference("")
	require.NoError(t, err)
	assert.Equal(t, PreferProduction, p)

	p, err = ParseRedirectPreference(" Sandbox ")
	require.NoError(t, err)
	assert.Equal(t, PreferSandbox, p)

	_, err = ParseRedirectPreference("staging")
	assert.Error(t, err)
}

func TestRedirectPreference_Pick(t *testing.T) {
	both := &api.PaymentSession{InitPoint: "https://prod", SandboxInitPoint: "https://sandbox"}
	onlySandbox := &api.PaymentSession{SandboxInitPoint: "https://sandbox"}
	onlyProd := &api.PaymentSession{InitPoint: "https://prod"}

	tests := []struct {
		name    string
		pref    RedirectPreference
		session *api.PaymentSession
		want    string
		ok      bool
	}{
		{"production", PreferProduction, both, "https://prod", true},
		{"sandbox", PreferSandbox, both, "https://sandbox", true},
		{"production falls back", PreferProduction, onlySandbox, "https://sandbox", true},
		{"sandbox falls back", PreferSandbox, onlyProd, "https://prod", true},
		{"no urls", PreferProduction, &api.PaymentSession{}, "", false},
		{"nil session", PreferSandbox, nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.pref.Pick(tt.session)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
