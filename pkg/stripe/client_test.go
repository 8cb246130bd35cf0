package stripe

import (
	"context"
	"testing"

	"github.com/brickfield/brickfield-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesKeyAgainstEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{
			name: "test env with test key",
			cfg:  config.StripeConfig{APIKey: "sk_test_abc", Secret: "whsec_abc", Env: "test"},
		},
		{
			name:    "test env with live key",
			cfg:     config.StripeConfig{APIKey: "sk_live_abc", Secret: "whsec_abc", Env: "test"},
			wantErr: true,
		},
		{
			name:    "missing api key",
			cfg:     config.StripeConfig{Secret: "whsec_abc", Env: "test"},
			wantErr: true,
		},
		{
			name:    "missing webhook secret",
			cfg:     config.StripeConfig{APIKey: "sk_test_abc", Env: "test"},
			wantErr: true,
		},
		{
			name:    "unknown environment",
			cfg:     config.StripeConfig{APIKey: "sk_test_abc", Secret: "whsec_abc", Env: "staging"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tc.cfg, nil)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test", client.Environment())
			assert.Equal(t, "whsec_abc", client.SigningSecret())
			assert.NotNil(t, client.API())
		})
	}
}
