package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferide/saferide/internal/app"
	"github.com/saferide/saferide/internal/config"
	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/monitor"
)

func TestNew_MemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.Hazards.Zones = []config.ZoneConfig{
		{ID: "zone-1", Lat: 52.37, Lng: 4.89, Radius: 300, RiskLevel: 0.8, Reason: "poor lighting"},
	}

	a, err := app.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Nil(t, a.Pool)
	assert.Nil(t, a.Tokens)
	assert.Equal(t, "straight_line", a.Planner.ProviderName())

	zones, err := a.Hazards.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, zones, 1)

	now := time.Now()
	sess, err := a.Monitor.CreateSession(context.Background(), monitor.CreateInput{
		Source:      geo.Location{Lat: 52.36, Lng: 4.88, Timestamp: now},
		Destination: geo.Location{Lat: 52.38, Lng: 4.90, Timestamp: now},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AlternativeRoutes)
}

func TestNew_TokensWhenSigningKeySet(t *testing.T) {
	cfg := config.Default()
	cfg.Admin.JWTSigningKey = "test-signing-key"

	a, err := app.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.Tokens)
	token, _, err := a.Tokens.Generate("ops@example.com", "admin")
	require.NoError(t, err)

	claims, err := a.Tokens.ValidateRole(token, "admin")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
}

func TestNewLogger_Level(t *testing.T) {
	log := app.NewLogger(config.LogConfig{Level: "warn"}, "saferide-api", "test")
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
}

func TestNewBootLogger(t *testing.T) {
	var buf bytes.Buffer
	boot := app.NewBootLogger(&buf, "saferide-worker")
	boot.Error().Err(errors.New("bad config")).Msg("failed to load configuration")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "saferide-worker", entry["service"])
	assert.Equal(t, "bad config", entry["error"])
	assert.Contains(t, entry, "time")
}
