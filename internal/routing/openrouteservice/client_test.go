package openrouteservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/routing"
	"github.com/saferide/saferide/pkg/polyline"
)

var (
	amsterdam = geo.Location{Lat: 52.3676, Lng: 4.9041}
	utrecht   = geo.Location{Lat: 52.0907, Lng: 5.1214}
)

func directionsFixture(t *testing.T) []byte {
	t.Helper()
	geometry := polyline.Encode([]polyline.Coordinate{
		{Lat: 52.3676, Lng: 4.9041},
		{Lat: 52.3000, Lng: 4.9500},
		{Lat: 52.0907, Lng: 5.1214},
	})
	body, err := json.Marshal(map[string]any{
		"routes": []map[string]any{
			{
				"summary":  map[string]any{"distance": 42100.5, "duration": 2456},
				"geometry": geometry,
				"segments": []map[string]any{{
					"distance": 42100.5,
					"duration": 2456,
					"steps": []map[string]any{
						{"distance": 800, "duration": 60, "type": 11, "instruction": "Head south", "name": "Damrak"},
						{"distance": 30000, "duration": 1500, "type": 1, "instruction": "Turn right onto A2", "name": "A2"},
						{"distance": 11000, "duration": 800, "type": 0, "instruction": "Continue", "name": "Croeselaan"},
						{"distance": 300, "duration": 96, "type": 10, "instruction": "Arrive", "name": "-"},
					},
				}},
			},
			{
				"summary":  map[string]any{"distance": 45000, "duration": 2700},
				"geometry": geometry,
			},
		},
	})
	if err != nil {
		t.Fatalf("failed to build fixture: %v", err)
	}
	return body
}

func TestClient_GetDirections_Success(t *testing.T) {
	respBody := directionsFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "mock123" {
			t.Errorf("expected Authorization header 'mock123', got '%s'", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/v2/directions/driving-car" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req orsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Coordinates[0][0] != amsterdam.Lng || req.Coordinates[0][1] != amsterdam.Lat {
			t.Errorf("expected [lng, lat] order, got %v", req.Coordinates[0])
		}
		if req.AlternativeRoutes == nil || req.AlternativeRoutes.TargetCount != 3 {
			t.Errorf("expected target_count 3, got %+v", req.AlternativeRoutes)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(respBody)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:     "mock123",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})

	resp, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      amsterdam,
		Destination: utrecht,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Provider != ProviderName {
		t.Errorf("expected provider %s, got %s", ProviderName, resp.Provider)
	}
	if len(resp.Paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(resp.Paths))
	}

	path := resp.Paths[0]
	if path.DistanceMeters != 42100.5 {
		t.Errorf("expected distance 42100.5, got %v", path.DistanceMeters)
	}
	if path.DurationSeconds != 2456 {
		t.Errorf("expected duration 2456, got %v", path.DurationSeconds)
	}
	if len(path.Waypoints) != 3 {
		t.Fatalf("expected 3 decoded waypoints, got %d", len(path.Waypoints))
	}
	if path.Waypoints[2].Lat != 52.0907 || path.Waypoints[2].Lng != 5.1214 {
		t.Errorf("unexpected last waypoint %+v", path.Waypoints[2])
	}
	if path.Summary != "via A2 and Croeselaan" {
		t.Errorf("unexpected summary %q", path.Summary)
	}
	if resp.Paths[1].Summary != "" {
		t.Errorf("expected empty summary without steps, got %q", resp.Paths[1].Summary)
	}
}

func TestClient_GetDirections_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{
			name:     "no route",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":2009,"message":"Route could not be found"}}`,
			expected: routing.ErrNoRouteFound,
		},
		{
			name:     "bad parameter",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":2003,"message":"Parameter invalid"}}`,
			expected: routing.ErrInvalidCoordinates,
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"Rate limit exceeded"}}`,
			expected: routing.ErrRateLimitExceeded,
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			body:     `{"error":{"code":403,"message":"Access denied"}}`,
			expected: routing.ErrProviderUnavailable,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `{"error":{"code":500,"message":"Internal server error"}}`,
			expected: routing.ErrProviderUnavailable,
		},
		{
			name:     "unparseable body",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			expected: routing.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(ClientConfig{
				APIKey:     "mock123",
				BaseURL:    server.URL,
				HTTPClient: server.Client(),
				Logger:     zerolog.Nop(),
			})

			_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
				Origin:      amsterdam,
				Destination: utrecht,
			})

			var routingErr *routing.Error
			if !errors.As(err, &routingErr) {
				t.Fatalf("expected routing.Error, got %T (%v)", err, err)
			}
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, routingErr.Err)
			}
		})
	}
}

func TestClient_GetDirections_InvalidCoordinates(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "mock123", Logger: zerolog.Nop()})

	for _, dest := range []geo.Location{{Lat: 91, Lng: 0}, {Lat: 0, Lng: -181}} {
		_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
			Origin:      amsterdam,
			Destination: dest,
		})
		if !errors.Is(err, routing.ErrInvalidCoordinates) {
			t.Errorf("expected ErrInvalidCoordinates for %+v, got %v", dest, err)
		}
	}
}

// mockFailingClient simulates network errors.
type mockFailingClient struct{}

func (m *mockFailingClient) Do(_ *http.Request) (*http.Response, error) {
	return nil, errors.New("network error")
}

func TestClient_GetDirections_NetworkError(t *testing.T) {
	client := NewClient(ClientConfig{
		APIKey:     "mock123",
		HTTPClient: &mockFailingClient{},
		Logger:     zerolog.Nop(),
	})

	_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      amsterdam,
		Destination: utrecht,
	})

	var routingErr *routing.Error
	if !errors.As(err, &routingErr) {
		t.Fatalf("expected routing.Error, got %T", err)
	}
	if !routingErr.IsRetryable() {
		t.Error("network failures should be retryable")
	}
}

func TestClient_Name(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "test", Logger: zerolog.Nop()})
	if client.Name() != ProviderName {
		t.Errorf("expected %s, got %s", ProviderName, client.Name())
	}
}
