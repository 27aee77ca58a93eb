package session_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/routing"
	"github.com/saferide/saferide/internal/session"
	"github.com/saferide/saferide/internal/threat"
)

var now = time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)

func newSession() *session.RideSession {
	s := session.New("ses_1",
		geo.Location{Lat: 52.37, Lng: 4.89},
		geo.Location{Lat: 52.09, Lng: 5.12},
		session.Limits{LocationHistory: 3, ThreatHistory: 2},
		now,
	)
	s.EmergencyContacts = []session.EmergencyContact{{ID: "ctc_1", Name: "Sam", Email: "sam@example.com"}}
	return s
}

func TestStatus_Transitions(t *testing.T) {
	all := []session.Status{
		session.StatusSetup, session.StatusActive, session.StatusCompleted,
		session.StatusEmergency, session.StatusCancelled,
	}
	allowed := map[session.Status][]session.Status{
		session.StatusSetup:     {session.StatusActive, session.StatusCancelled},
		session.StatusActive:    {session.StatusCompleted, session.StatusEmergency, session.StatusCancelled},
		session.StatusEmergency: {session.StatusCompleted},
	}

	for _, from := range all {
		for _, to := range all {
			expected := false
			for _, a := range allowed[from] {
				if a == to {
					expected = true
				}
			}
			assert.Equal(t, expected, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, session.StatusCompleted.Terminal())
	assert.True(t, session.StatusCancelled.Terminal())
	assert.False(t, session.StatusEmergency.Terminal())
	assert.False(t, session.Status("paused").Valid())
	assert.True(t, session.StatusEmergency.Monitored())
	assert.False(t, session.StatusSetup.Monitored())
}

func TestRideSession_Transition(t *testing.T) {
	s := newSession()

	require.NoError(t, s.Transition(session.StatusActive, now))
	require.NoError(t, s.Transition(session.StatusEmergency, now))

	err := s.Transition(session.StatusActive, now)
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
	assert.Equal(t, session.StatusEmergency, s.Status)

	var te *session.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, session.StatusEmergency, te.From)
}

func TestRideSession_CloneIsDeep(t *testing.T) {
	s := newSession()
	s.ConfirmedRoute = &routing.Route{ID: "rte_1", Waypoints: []geo.Location{s.Source, s.Destination}}
	s.LocationHistory.Push(s.Source)
	s.DeviationHistory = []threat.DeviationPoint{{DistanceFromRoute: 150}}

	c := s.Clone()
	c.ConfirmedRoute.Waypoints[0].Lat = 0
	c.LocationHistory.Push(s.Destination)
	c.DeviationHistory[0].DistanceFromRoute = 999
	c.EmergencyContacts[0].Notified = true

	assert.Equal(t, 52.37, s.ConfirmedRoute.Waypoints[0].Lat)
	assert.Equal(t, 1, s.LocationHistory.Len())
	assert.Equal(t, 150.0, s.DeviationHistory[0].DistanceFromRoute)
	assert.False(t, s.EmergencyContacts[0].Notified)
}

func TestRideSession_HistoriesAreBounded(t *testing.T) {
	s := newSession()
	for i := 0; i < 5; i++ {
		s.LocationHistory.Push(geo.Location{Lat: float64(i)})
		s.ThreatHistory.Push(threat.Forced(float64(i)/10, now))
	}

	assert.Equal(t, 3, s.LocationHistory.Len())
	assert.Equal(t, 2, s.ThreatHistory.Len())

	last, ok := s.LastLocation()
	require.True(t, ok)
	assert.Equal(t, 4.0, last.Lat)
}

func TestRideSession_JSONRoundTrip(t *testing.T) {
	s := newSession()
	s.LocationHistory.Push(s.Source.At(now, geo.SourceGPS))

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded session.RideSession
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s.ID, decoded.ID)
	assert.Equal(t, session.StatusSetup, decoded.Status)
	require.NotNil(t, decoded.LocationHistory)
	assert.Equal(t, 1, decoded.LocationHistory.Len())
	assert.Equal(t, "sam@example.com", decoded.EmergencyContacts[0].Email)
}

func TestEmergencyContact_CanEmail(t *testing.T) {
	tests := map[string]bool{
		"sam@example.com":    true,
		"  sam@example.com ": true,
		"":                   false,
		"sam":                false,
		"@example.com":       false,
		"sam@":               false,
	}
	for email, expected := range tests {
		assert.Equal(t, expected, session.EmergencyContact{Email: email}.CanEmail(), email)
	}
}

func TestInMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := session.NewInMemoryRepository()

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	s := newSession()
	require.NoError(t, repo.Put(ctx, s))

	s.Status = session.StatusCancelled
	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusSetup, got.Status, "store must keep its own copy")

	got.LastUpdateAt = now.Add(-2 * time.Minute)
	require.NoError(t, got.Transition(session.StatusActive, now))
	require.NoError(t, repo.Put(ctx, got))

	other := newSession()
	other.ID = "ses_2"
	other.LastUpdateAt = now
	require.NoError(t, other.Transition(session.StatusActive, now))
	require.NoError(t, repo.Put(ctx, other))

	ids, err := repo.Find(ctx, session.Filter{
		Statuses:         []session.Status{session.StatusActive},
		LastUpdateBefore: now.Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ses_1"}, ids)

	ids, err = repo.Find(ctx, session.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ses_1", "ses_2"}, ids)

	require.NoError(t, repo.Delete(ctx, "ses_1"))
	assert.ErrorIs(t, repo.Delete(ctx, "ses_1"), session.ErrSessionNotFound)
}

func TestInMemoryRepository_LockSerializesReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	repo := session.NewInMemoryRepository()
	require.NoError(t, repo.Put(ctx, newSession()))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := repo.Lock(ctx, "ses_1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			s, err := repo.Get(ctx, "ses_1")
			if !assert.NoError(t, err) {
				return
			}
			s.EmergencyContacts = append(s.EmergencyContacts, session.EmergencyContact{ID: fmt.Sprintf("ctc_w%d", i)})
			assert.NoError(t, repo.Put(ctx, s))
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, "ses_1")
	require.NoError(t, err)
	assert.Len(t, got.EmergencyContacts, 1+writers, "no write may be lost")
}
