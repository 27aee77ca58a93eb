package monitor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferide/saferide/internal/escalation"
	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/hazard"
	"github.com/saferide/saferide/internal/monitor"
	"github.com/saferide/saferide/internal/session"
	"github.com/saferide/saferide/internal/threat"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type countingNotifier struct {
	mu   sync.Mutex
	sent int
}

func (n *countingNotifier) Send(context.Context, escalation.Message) escalation.SendResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return escalation.SendResult{Success: true}
}

var (
	source      = geo.Location{Lat: 52.3700, Lng: 4.8900}
	destination = geo.Location{Lat: 52.3800, Lng: 4.8900}
	// Roughly 1.2 km east of the direct route.
	offRoute = geo.Location{Lat: 52.3750, Lng: 4.9080}
)

type fixture struct {
	svc      *monitor.Service
	clock    *clock
	notifier *countingNotifier
	zones    *hazard.InMemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)}
	n := &countingNotifier{}
	zones := hazard.NewInMemoryRepository(nil)
	orch := escalation.NewOrchestrator(escalation.OrchestratorConfig{
		Notifier: n,
		Logger:   zerolog.Nop(),
		Now:      c.Now,
	})
	svc := monitor.NewService(monitor.ServiceConfig{
		Zones:        zones,
		Orchestrator: orch,
		Logger:       zerolog.Nop(),
		Now:          c.Now,
	})
	return &fixture{svc: svc, clock: c, notifier: n, zones: zones}
}

func (f *fixture) activeSession(t *testing.T) *session.RideSession {
	t.Helper()
	ctx := context.Background()
	sess, err := f.svc.CreateSession(ctx, monitor.CreateInput{
		Source:      source,
		Destination: destination,
		EmergencyContacts: []session.EmergencyContact{
			{Name: "Alex", Email: "alex@example.com"},
		},
	})
	require.NoError(t, err)
	sess, err = f.svc.ConfirmRoute(ctx, sess.ID, "")
	require.NoError(t, err)
	return sess
}

func TestService_CreateAndConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, monitor.CreateInput{
		Source:            source,
		Destination:       destination,
		EmergencyContacts: []session.EmergencyContact{{Name: "Alex", Email: "alex@example.com", Notified: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, session.StatusSetup, sess.Status)
	require.Len(t, sess.AlternativeRoutes, 1)
	assert.NotEmpty(t, sess.EmergencyContacts[0].ID)
	assert.False(t, sess.EmergencyContacts[0].Notified, "callers cannot pre-mark contacts")

	_, err = f.svc.ConfirmRoute(ctx, sess.ID, "rte_unknown")
	assert.ErrorIs(t, err, monitor.ErrRouteNotFound)

	confirmed, err := f.svc.ConfirmRoute(ctx, sess.ID, sess.AlternativeRoutes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedRoute)
	assert.NotNil(t, confirmed.StartTime)

	_, err = f.svc.ConfirmRoute(ctx, sess.ID, "")
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
}

func TestService_CreateRejectsInvalidCoordinates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSession(context.Background(), monitor.CreateInput{
		Source:      geo.Location{Lat: 91, Lng: 0},
		Destination: destination,
	})
	assert.ErrorIs(t, err, monitor.ErrInvalidLocation)
}

func TestService_UpdateRequiresActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateLocation(ctx, "ses_missing", monitor.Update{Location: source, LocationEnabled: true})
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	sess, err := f.svc.CreateSession(ctx, monitor.CreateInput{Source: source, Destination: destination})
	require.NoError(t, err)
	_, err = f.svc.UpdateLocation(ctx, sess.ID, monitor.Update{Location: source, LocationEnabled: true})
	assert.ErrorIs(t, err, monitor.ErrSessionNotActive)
}

func TestService_OnRouteUpdateIsSafe(t *testing.T) {
	f := newFixture(t)
	sess := f.activeSession(t)

	f.clock.Advance(10 * time.Second)
	res, err := f.svc.UpdateLocation(context.Background(), sess.ID, monitor.Update{
		Location:        geo.Location{Lat: 52.3720, Lng: 4.8900},
		LocationEnabled: true,
	})
	require.NoError(t, err)

	assert.False(t, res.IsDeviated)
	assert.Less(t, res.DistanceFromRoute, 1.0)
	assert.Equal(t, threat.LevelSafe, res.Assessment.Level)
	assert.Nil(t, res.Escalation)

	stored, err := f.svc.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LocationHistory.Len())
	assert.Equal(t, 1, stored.ThreatHistory.Len())
	assert.Equal(t, geo.SourceGPS, stored.LocationHistory.Items()[0].Source)
}

func TestService_OffRouteInsideHazardZone(t *testing.T) {
	f := newFixture(t)
	f.zones.Replace([]hazard.Zone{{ID: "hz_1", Center: offRoute, Radius: 300, RiskLevel: 1}})
	sess := f.activeSession(t)

	res, err := f.svc.UpdateLocation(context.Background(), sess.ID, monitor.Update{Location: offRoute, LocationEnabled: true})
	require.NoError(t, err)

	assert.True(t, res.IsDeviated)
	assert.Greater(t, res.DistanceFromRoute, 1000.0)
	assert.InDelta(t, 0.6, res.Assessment.Factors.RouteDeviation, 1e-9)
	assert.InDelta(t, 1.0, res.Assessment.Factors.HighRiskZone, 1e-9)
	assert.InDelta(t, 0.44, res.Assessment.Score, 1e-9)
	assert.Equal(t, threat.LevelMedium, res.Assessment.Level)
	assert.Equal(t, threat.ActionLog, res.Assessment.Action)
	assert.Nil(t, res.Escalation)

	stored, err := f.svc.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, stored.DeviationHistory, 1)
}

func TestService_ReportLocationDisabled(t *testing.T) {
	f := newFixture(t)
	sess := f.activeSession(t)
	ctx := context.Background()

	_, err := f.svc.UpdateLocation(ctx, sess.ID, monitor.Update{Location: source, LocationEnabled: true})
	require.NoError(t, err)

	res, err := f.svc.ReportLocationDisabled(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Assessment.Factors.LocationDisabled)
	assert.False(t, res.IsDeviated)

	stored, err := f.svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, stored.LocationEnabled)
	assert.Equal(t, 2, stored.ThreatHistory.Len())
	assert.Equal(t, 1, stored.LocationHistory.Len(), "no synthetic sample is recorded")
}

func TestService_ReportLocationDisabledWithoutHistory(t *testing.T) {
	f := newFixture(t)
	sess := f.activeSession(t)

	res, err := f.svc.ReportLocationDisabled(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.Assessment.Factors.RouteDeviation)
	assert.Equal(t, 1.0, res.Assessment.Factors.LocationDisabled)
	assert.Zero(t, res.DistanceFromRoute)
}

func TestService_TriggerEmergency(t *testing.T) {
	f := newFixture(t)
	sess := f.activeSession(t)
	ctx := context.Background()

	loc := geo.Location{Lat: 52.3710, Lng: 4.8901}
	res, err := f.svc.TriggerEmergency(ctx, sess.ID, &loc)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Assessment.Score)
	assert.Equal(t, threat.LevelCritical, res.Assessment.Level)
	require.NotNil(t, res.Escalation)
	assert.Contains(t, res.Escalation.Actions, escalation.ActionEmergencyServices)
	assert.Equal(t, 1, f.notifier.sent)

	stored, err := f.svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusEmergency, stored.Status)
	assert.Equal(t, res.Escalation.DispatchID, stored.DispatchID)
	assert.True(t, stored.EmergencyContacts[0].Notified)
	assert.Equal(t, 1, stored.LocationHistory.Len())

	d, err := f.svc.Dispatch(ctx, stored.DispatchID)
	require.NoError(t, err)
	assert.True(t, d.EmergencyServicesNotified)

	// A second trigger keeps the dispatch and does not re-notify.
	_, err = f.svc.TriggerEmergency(ctx, sess.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.sent)

	// Emergency is one way: the session can only complete.
	_, err = f.svc.CancelSession(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
	completed, err := f.svc.CompleteSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, completed.Status)
}

func TestTestSupport_ForceThreatLevel(t *testing.T) {
	f := newFixture(t)
	sess := f.activeSession(t)
	ts := monitor.NewTestSupport(f.svc)
	ctx := context.Background()

	_, err := ts.ForceThreatLevel(ctx, sess.ID, nil, 1.5)
	assert.ErrorIs(t, err, monitor.ErrInvalidScore)

	res, err := ts.ForceThreatLevel(ctx, sess.ID, nil, 0.95)
	require.NoError(t, err)
	assert.Equal(t, threat.LevelCritical, res.Assessment.Level)
	assert.Equal(t, threat.ActionEmergencyEscalation, res.Assessment.Action)
	assert.InDelta(t, 0.95*threat.RouteDeviationWeight, res.Assessment.Factors.RouteDeviation, 1e-9)
	require.NotNil(t, res.Escalation)
	assert.True(t, res.Escalation.Dispatch.EmergencyServicesNotified)
}

func TestService_SweepStale(t *testing.T) {
	f := newFixture(t)
	stale := f.activeSession(t)
	ctx := context.Background()

	f.clock.Advance(90 * time.Second)
	fresh := f.activeSession(t)

	res, err := f.svc.SweepStale(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evaluated)
	assert.Zero(t, res.Failed)

	got, err := f.svc.GetSession(ctx, stale.ID)
	require.NoError(t, err)
	last, ok := got.ThreatHistory.Last()
	require.True(t, ok)
	assert.Equal(t, 0.8, last.Factors.LocationDisabled)

	got, err = f.svc.GetSession(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ThreatHistory.Len())
}

func TestService_ConcurrentUpdatesAreSerialized(t *testing.T) {
	f := newFixture(t)
	sess := f.activeSession(t)
	ctx := context.Background()

	const updates = 20
	var wg sync.WaitGroup
	for i := 0; i < updates; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.UpdateLocation(ctx, sess.ID, monitor.Update{Location: source, LocationEnabled: true})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, updates, stored.LocationHistory.Len())
	assert.Equal(t, updates, stored.ThreatHistory.Len())
}

func TestService_SharedStoreNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)}
	n := &countingNotifier{}
	store := session.NewInMemoryRepository()
	dispatches := escalation.NewInMemoryRepository()

	// Two replicas share the store and dispatch repository, nothing else.
	replica := func() *monitor.Service {
		return monitor.NewService(monitor.ServiceConfig{
			Store: store,
			Orchestrator: escalation.NewOrchestrator(escalation.OrchestratorConfig{
				Notifier:   n,
				Dispatches: dispatches,
				Logger:     zerolog.Nop(),
				Now:        c.Now,
			}),
			Logger: zerolog.Nop(),
			Now:    c.Now,
		})
	}
	replicas := []*monitor.Service{replica(), replica()}

	sess, err := replicas[0].CreateSession(ctx, monitor.CreateInput{
		Source:            source,
		Destination:       destination,
		EmergencyContacts: []session.EmergencyContact{{Name: "Alex", Email: "alex@example.com"}},
	})
	require.NoError(t, err)
	_, err = replicas[1].ConfirmRoute(ctx, sess.ID, "")
	require.NoError(t, err)

	results := make([]*monitor.UpdateResult, 2*len(replicas))
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := replicas[i%len(replicas)].TriggerEmergency(ctx, sess.ID, nil)
			if assert.NoError(t, err) {
				results[i] = res
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, n.sent)
	stored, err := replicas[0].GetSession(ctx, sess.ID)
	require.NoError(t, err)
	for _, res := range results {
		require.NotNil(t, res)
		require.NotNil(t, res.Escalation)
		assert.Equal(t, stored.DispatchID, res.Escalation.DispatchID)
	}
	assert.Equal(t, len(results), stored.ThreatHistory.Len())
}
