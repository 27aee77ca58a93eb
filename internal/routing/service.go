package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/community"
	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/hazard"
)

// ZoneSource lists the current high-risk zones.
type ZoneSource interface {
	List(ctx context.Context) ([]hazard.Zone, error)
}

// ReportSource snapshots the community reports.
type ReportSource interface {
	Snapshot(ctx context.Context) (*community.Set, error)
}

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Zones and Reports feed safety scoring. Either may be nil.
	Zones   ZoneSource
	Reports ReportSource

	// Logger for service operations.
	Logger zerolog.Logger

	// Alternatives is used when a request does not ask for a number of
	// alternative routes.
	Alternatives int

	// CacheTTL is how long to cache provider paths (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.001 ~ 110m).
	// Requests whose endpoints share grid cells share cached paths.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale paths on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration

	// Now overrides the clock used for report decay; defaults to time.Now.
	Now func() time.Time
}

// PlanRequest asks for scored route options.
type PlanRequest struct {
	Source       geo.Location
	Destination  geo.Location
	Alternatives int
}

// Plan is a ranked list of route options, safest first.
type Plan struct {
	Routes   []Route `json:"routes"`
	Provider string  `json:"provider"`
	// Fallback is set when the provider failed and a direct route was used.
	Fallback bool `json:"fallback"`
}

// Service plans and scores routes, caching provider responses.
type Service struct {
	provider        Provider
	zones           ZoneSource
	reports         ReportSource
	logger          zerolog.Logger
	now             func() time.Time
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration
	alternatives    int

	mu          sync.RWMutex
	cache       map[string]*cachedDirections
	lastCleanup time.Time
}

type cachedDirections struct {
	response  *DirectionsResponse
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service. A nil provider means every plan
// uses the direct fallback route.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Provider == nil {
		cfg.Provider = StraightLine{}
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.CacheGridSize == 0 {
		cfg.CacheGridSize = 0.001
	}
	if cfg.StaleIfErrorTTL == 0 {
		cfg.StaleIfErrorTTL = 15 * time.Minute
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		provider:        cfg.Provider,
		zones:           cfg.Zones,
		reports:         cfg.Reports,
		logger:          cfg.Logger,
		now:             cfg.Now,
		cacheTTL:        cfg.CacheTTL,
		cacheGridSize:   cfg.CacheGridSize,
		staleIfErrorTTL: cfg.StaleIfErrorTTL,
		cleanupInterval: cfg.CleanupInterval,
		alternatives:    cfg.Alternatives,
		cache:           make(map[string]*cachedDirections),
	}
}

// Plan returns scored route options between source and destination, safest
// first. When the provider fails the plan holds a single direct route with
// a neutral safety score.
func (s *Service) Plan(ctx context.Context, req PlanRequest) (*Plan, error) {
	if !req.Source.ValidCoordinates() || !req.Destination.ValidCoordinates() {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_COORDINATES",
			Message:  "invalid source or destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	alternatives := req.Alternatives
	if alternatives <= 0 {
		alternatives = s.alternatives
	}

	resp, err := s.GetDirections(ctx, DirectionsRequest{
		Origin:          req.Source,
		Destination:     req.Destination,
		Profile:         ProfileDriving,
		MaxAlternatives: alternatives,
	})
	if err != nil || len(resp.Paths) == 0 {
		if errors.Is(err, ErrInvalidCoordinates) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).
			Str("provider", s.provider.Name()).
			Msg("routing provider failed, using direct route")
		return s.fallbackPlan(req), nil
	}

	zones, reports, err := s.scoringInputs(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	routes := make([]Route, 0, len(resp.Paths))
	for _, p := range resp.Paths {
		waypoints := p.Waypoints
		if len(waypoints) < 2 {
			waypoints = []geo.Location{req.Source, req.Destination}
		}
		routes = append(routes, Route{
			ID:              newRouteID(),
			Waypoints:       waypoints,
			SafetyScore:     SafetyScore(waypoints, zones, reports, now),
			DistanceMeters:  p.DistanceMeters,
			DurationMinutes: p.DurationSeconds / 60,
			HighRiskZones:   hazard.Intersecting(waypoints, zones),
			Summary:         p.Summary,
			Provider:        resp.Provider,
		})
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].SafetyScore > routes[j].SafetyScore
	})

	return &Plan{Routes: routes, Provider: resp.Provider}, nil
}

func (s *Service) fallbackPlan(req PlanRequest) *Plan {
	p := straightPath(req.Source, req.Destination)
	return &Plan{
		Routes: []Route{{
			ID:              newRouteID(),
			Waypoints:       p.Waypoints,
			SafetyScore:     NeutralSafetyScore,
			DistanceMeters:  p.DistanceMeters,
			DurationMinutes: p.DurationSeconds / 60,
			Summary:         p.Summary,
			Provider:        StraightLineName,
		}},
		Provider: StraightLineName,
		Fallback: true,
	}
}

func (s *Service) scoringInputs(ctx context.Context) ([]hazard.Zone, *community.Set, error) {
	var (
		zones   []hazard.Zone
		reports *community.Set
		err     error
	)
	if s.zones != nil {
		if zones, err = s.zones.List(ctx); err != nil {
			return nil, nil, fmt.Errorf("list hazard zones: %w", err)
		}
	}
	if s.reports != nil {
		if reports, err = s.reports.Snapshot(ctx); err != nil {
			return nil, nil, fmt.Errorf("snapshot community reports: %w", err)
		}
	}
	return zones, reports, nil
}

// GetDirections returns provider paths between two points.
// Uses cached data if available and not expired.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if !req.Origin.ValidCoordinates() {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if !req.Destination.ValidCoordinates() {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	cacheKey := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for directions")
		return cached.response, nil
	}
	s.mu.RUnlock()

	return s.fetchDirections(ctx, req, cacheKey)
}

// fetchDirections fetches directions from provider and updates cache.
func (s *Service) fetchDirections(ctx context.Context, req DirectionsRequest, cacheKey string) (*DirectionsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache (prevents thundering herd)
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		return cached.response, nil
	}

	resp, err := s.provider.GetDirections(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("origin_lat", req.Origin.Lat).
			Float64("origin_lng", req.Origin.Lng).
			Float64("dest_lat", req.Destination.Lat).
			Float64("dest_lng", req.Destination.Lng).
			Str("provider", s.provider.Name()).
			Msg("failed to fetch directions")

		// stale-if-error
		if cached, ok := s.cache[cacheKey]; ok {
			if time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Str("cache_key", cacheKey).
					Msg("serving stale directions due to provider error")
				return cached.response, nil
			}
		}

		return nil, err
	}

	now := time.Now()
	s.cache[cacheKey] = &cachedDirections{
		response:  resp,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	s.logger.Debug().
		Str("cache_key", cacheKey).
		Int("path_count", len(resp.Paths)).
		Msg("cached directions response")

	s.cleanupIfNeeded()

	return resp, nil
}

// cacheKey quantizes both endpoints to the cache grid.
// Format: {profile}:{alts}:{originLat},{originLng}:{destLat},{destLng}.
func (s *Service) cacheKey(req DirectionsRequest) string {
	q := func(v float64) float64 {
		return math.Floor(v/s.cacheGridSize) * s.cacheGridSize
	}
	return fmt.Sprintf("%s:%d:%.4f,%.4f:%.4f,%.4f",
		req.Profile, req.MaxAlternatives,
		q(req.Origin.Lat), q(req.Origin.Lng),
		q(req.Destination.Lat), q(req.Destination.Lng),
	)
}

// cleanupIfNeeded removes expired entries if cleanup interval has passed.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired routing cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedDirections)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var fresh, stale int
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.provider.Name(),
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

func newRouteID() string {
	return "rte_" + uuid.New().String()[:22]
}
