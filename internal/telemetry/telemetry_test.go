package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferide/saferide/internal/config"
	"github.com/saferide/saferide/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "saferide-test",
		OTLPEndpoint: "localhost:4317",
		Enabled:      false,
	})
	require.NoError(t, err)
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Environment = "staging"
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.SampleRatio = 0.25

	tc := telemetry.FromConfig(cfg, "saferide-worker", "1.2.3")

	assert.Equal(t, "saferide-worker", tc.ServiceName)
	assert.Equal(t, "1.2.3", tc.ServiceVersion)
	assert.Equal(t, "staging", tc.Environment)
	assert.Equal(t, "localhost:4317", tc.OTLPEndpoint)
	assert.InDelta(t, 0.25, tc.SampleRatio, 1e-9)
	assert.True(t, tc.Enabled)
	assert.True(t, tc.Insecure)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		assert.Contains(t, telemetry.Sampler(tt.ratio).Description(), tt.want)
	}
}
