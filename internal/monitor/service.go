package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/escalation"
	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/hazard"
	"github.com/saferide/saferide/internal/routing"
	"github.com/saferide/saferide/internal/session"
	"github.com/saferide/saferide/internal/threat"
)

// ServiceConfig holds configuration for the monitor service.
type ServiceConfig struct {
	Store        session.Store
	Planner      Planner
	Zones        ZoneSource
	Orchestrator *escalation.Orchestrator

	// Metrics is optional.
	Metrics *Metrics

	// Limits sizes the histories of new sessions.
	Limits session.Limits

	Deviation threat.DeviationConfig

	Logger zerolog.Logger
	Now    func() time.Time
}

// Service is the server-authoritative owner of ride sessions. Every mutation
// of a session happens under that session's store lock, so instances sharing
// a store never interleave on one session.
type Service struct {
	store        session.Store
	planner      Planner
	zones        ZoneSource
	orchestrator *escalation.Orchestrator
	metrics      *Metrics
	limits       session.Limits
	deviation    threat.DeviationConfig
	logger       zerolog.Logger
	now          func() time.Time
}

// NewService creates a new monitor service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Store == nil {
		cfg.Store = session.NewInMemoryRepository()
	}
	if cfg.Planner == nil {
		cfg.Planner = routing.NewService(routing.ServiceConfig{Logger: cfg.Logger, Zones: cfg.Zones})
	}
	if cfg.Orchestrator == nil {
		cfg.Orchestrator = escalation.NewOrchestrator(escalation.OrchestratorConfig{
			Logger:   cfg.Logger,
			Observer: cfg.Metrics,
			Now:      cfg.Now,
		})
	}
	if cfg.Limits.LocationHistory <= 0 {
		cfg.Limits.LocationHistory = session.DefaultLocationHistory
	}
	if cfg.Limits.ThreatHistory <= 0 {
		cfg.Limits.ThreatHistory = session.DefaultThreatHistory
	}

	return &Service{
		store:        cfg.Store,
		planner:      cfg.Planner,
		zones:        cfg.Zones,
		orchestrator: cfg.Orchestrator,
		metrics:      cfg.Metrics,
		limits:       cfg.Limits,
		deviation:    cfg.Deviation,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
}

// CreateSession plans route options and stores a new session in setup.
func (s *Service) CreateSession(ctx context.Context, in CreateInput) (*session.RideSession, error) {
	if !in.Source.ValidCoordinates() || !in.Destination.ValidCoordinates() {
		return nil, ErrInvalidLocation
	}

	plan, err := s.planner.Plan(ctx, routing.PlanRequest{
		Source:       in.Source,
		Destination:  in.Destination,
		Alternatives: in.Alternatives,
	})
	if err != nil {
		return nil, fmt.Errorf("planning routes: %w", err)
	}

	now := s.now()
	sess := session.New("ses_"+uuid.New().String()[:22], in.Source, in.Destination, s.limits, now)
	sess.AlternativeRoutes = plan.Routes
	sess.VehicleInfo = in.VehicleInfo
	sess.EmergencyContacts = make([]session.EmergencyContact, len(in.EmergencyContacts))
	for i, c := range in.EmergencyContacts {
		if c.ID == "" {
			c.ID = "ctc_" + uuid.New().String()[:22]
		}
		c.Notified = false
		c.NotifiedAt = nil
		sess.EmergencyContacts[i] = c
	}

	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	s.logger.Info().
		Str("session_id", sess.ID).
		Int("routes", len(plan.Routes)).
		Bool("fallback", plan.Fallback).
		Msg("session created")
	return sess, nil
}

// GetSession returns a copy of the session.
func (s *Service) GetSession(ctx context.Context, id string) (*session.RideSession, error) {
	return s.store.Get(ctx, id)
}

// ConfirmRoute freezes one of the planned routes and starts monitoring. An
// empty routeID picks the safest option.
func (s *Service) ConfirmRoute(ctx context.Context, id, routeID string) (*session.RideSession, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var chosen *routing.Route
	for i := range sess.AlternativeRoutes {
		if routeID == "" || sess.AlternativeRoutes[i].ID == routeID {
			chosen = sess.AlternativeRoutes[i].Clone()
			break
		}
	}
	if chosen == nil {
		return nil, ErrRouteNotFound
	}

	now := s.now()
	if err := sess.Transition(session.StatusActive, now); err != nil {
		return nil, err
	}
	sess.ConfirmedRoute = chosen
	sess.StartTime = &now
	sess.LastUpdateAt = now

	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	s.logger.Info().
		Str("session_id", sess.ID).
		Str("route_id", chosen.ID).
		Float64("safety_score", chosen.SafetyScore).
		Msg("route confirmed, monitoring started")
	return sess, nil
}

// UpdateLocation records a location sample and evaluates the session.
func (s *Service) UpdateLocation(ctx context.Context, id string, upd Update) (*UpdateResult, error) {
	loc := upd.Location
	if !loc.ValidCoordinates() {
		return nil, ErrInvalidLocation
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.monitored(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if loc.Timestamp.IsZero() {
		loc.Timestamp = now
	}
	if loc.Source == "" {
		loc.Source = geo.SourceGPS
	}

	distance := geo.DistanceFromRoute(loc, sess.ConfirmedRoute.Waypoints)
	sess.LocationHistory.Push(loc)
	sess.DeviationHistory = threat.RecordDeviation(sess.DeviationHistory, loc, distance, s.deviation)

	previous := sess.LastUpdateAt
	sess.LocationEnabled = upd.LocationEnabled
	sess.LastUpdateAt = now

	return s.evaluate(ctx, sess, &loc, previous, now)
}

// ReportLocationDisabled evaluates the session after the device stopped
// sharing its location. The last known position stands in for a fresh one.
func (s *Service) ReportLocationDisabled(ctx context.Context, id string) (*UpdateResult, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.monitored(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.LocationEnabled = false
	now := s.now()
	return s.evaluate(ctx, sess, lastKnown(sess), sess.LastUpdateAt, now)
}

// TriggerEmergency runs the panic path. loc, when given, is recorded first.
func (s *Service) TriggerEmergency(ctx context.Context, id string, loc *geo.Location) (*UpdateResult, error) {
	return s.force(ctx, id, loc, threat.Panic)
}

// CompleteSession ends the ride normally.
func (s *Service) CompleteSession(ctx context.Context, id string) (*session.RideSession, error) {
	return s.finish(ctx, id, session.StatusCompleted)
}

// CancelSession abandons the ride.
func (s *Service) CancelSession(ctx context.Context, id string) (*session.RideSession, error) {
	return s.finish(ctx, id, session.StatusCancelled)
}

// Dispatch returns a stored dispatch.
func (s *Service) Dispatch(ctx context.Context, id string) (*escalation.Dispatch, error) {
	return s.orchestrator.Dispatch(ctx, id)
}

// SweepStale evaluates monitored sessions that have not reported a location
// for longer than staleAfter, so silent devices still accrue the staleness
// factor. Failures are logged and counted, not returned.
func (s *Service) SweepStale(ctx context.Context, staleAfter time.Duration) (SweepResult, error) {
	var result SweepResult

	ids, err := s.store.Find(ctx, session.Filter{
		Statuses:         []session.Status{session.StatusActive, session.StatusEmergency},
		LastUpdateBefore: s.now().Add(-staleAfter),
	})
	if err != nil {
		return result, fmt.Errorf("finding stale sessions: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res, err := s.sweepOne(ctx, id, staleAfter)
		if err != nil {
			result.Failed++
			s.logger.Warn().Err(err).Str("session_id", id).Msg("stale session evaluation failed")
			continue
		}
		if res == nil {
			continue
		}
		result.Evaluated++
		if res.Escalation != nil {
			result.Escalated++
		}
	}
	return result, nil
}

func (s *Service) sweepOne(ctx context.Context, id string, staleAfter time.Duration) (*UpdateResult, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.monitored(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	// A location may have arrived since the sweep listed this session.
	if now.Sub(sess.LastUpdateAt) < staleAfter {
		return nil, nil
	}
	return s.evaluate(ctx, sess, lastKnown(sess), sess.LastUpdateAt, now)
}

// force pushes a synthesized assessment through the escalation path.
func (s *Service) force(ctx context.Context, id string, loc *geo.Location, assess func(time.Time) threat.Assessment) (*UpdateResult, error) {
	if loc != nil && !loc.ValidCoordinates() {
		return nil, ErrInvalidLocation
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.monitored(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if loc != nil {
		l := *loc
		if l.Timestamp.IsZero() {
			l.Timestamp = now
		}
		if l.Source == "" {
			l.Source = geo.SourceGPS
		}
		sess.LocationHistory.Push(l)
		sess.LastUpdateAt = now
		loc = &l
	} else {
		loc = lastKnown(sess)
	}

	a := assess(now)
	return s.apply(ctx, sess, a, loc)
}

// evaluate scores the session's current state and applies the result.
func (s *Service) evaluate(ctx context.Context, sess *session.RideSession, current *geo.Location, lastUpdate, now time.Time) (*UpdateResult, error) {
	zones, err := s.listZones(ctx)
	if err != nil {
		return nil, err
	}

	a := threat.Assess(threat.Input{
		Current:         current,
		Route:           sess.ConfirmedRoute.Waypoints,
		LocationHistory: sess.LocationHistory.Items(),
		Deviations:      sess.DeviationHistory,
		Zones:           zones,
		LocationEnabled: sess.LocationEnabled,
		LastUpdate:      lastUpdate,
		Now:             now,
	})
	return s.apply(ctx, sess, a, current)
}

// apply records a, escalates when it qualifies and persists the session.
func (s *Service) apply(ctx context.Context, sess *session.RideSession, a threat.Assessment, current *geo.Location) (*UpdateResult, error) {
	sess.ThreatHistory.Push(a)
	sess.UpdatedAt = a.Timestamp
	s.metrics.Assessed(ctx, a)

	result := &UpdateResult{Assessment: a}
	if current != nil && sess.ConfirmedRoute != nil {
		result.DistanceFromRoute = geo.DistanceFromRoute(*current, sess.ConfirmedRoute.Waypoints)
		result.IsDeviated = result.DistanceFromRoute > threat.SafeCorridorRadius
	}

	esc, err := s.orchestrator.Escalate(ctx, sess, a, current)
	if err != nil {
		return nil, fmt.Errorf("escalating session %s: %w", sess.ID, err)
	}
	result.Escalation = esc

	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	s.logger.Debug().
		Str("session_id", sess.ID).
		Float64("score", a.Score).
		Str("level", string(a.Level)).
		Float64("distance_from_route", result.DistanceFromRoute).
		Msg("session evaluated")
	return result, nil
}

func (s *Service) finish(ctx context.Context, id string, status session.Status) (*session.RideSession, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.Transition(status, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	s.logger.Info().
		Str("session_id", sess.ID).
		Str("status", string(status)).
		Msg("session finished")
	return sess, nil
}

func (s *Service) lock(ctx context.Context, id string) (func(), error) {
	unlock, err := s.store.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("locking session %s: %w", id, err)
	}
	return unlock, nil
}

func (s *Service) monitored(ctx context.Context, id string) (*session.RideSession, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Status.Monitored() {
		return nil, ErrSessionNotActive
	}
	if sess.ConfirmedRoute == nil {
		return nil, ErrNoConfirmedRoute
	}
	return sess, nil
}

func (s *Service) listZones(ctx context.Context) ([]hazard.Zone, error) {
	if s.zones == nil {
		return nil, nil
	}
	zones, err := s.zones.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing hazard zones: %w", err)
	}
	return zones, nil
}

func lastKnown(sess *session.RideSession) *geo.Location {
	last, ok := sess.LastLocation()
	if !ok {
		return nil
	}
	l := last
	l.Source = geo.SourceLastKnown
	return &l
}
