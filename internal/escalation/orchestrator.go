package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/session"
	"github.com/saferide/saferide/internal/threat"
)

const (
	// DefaultNotifyTimeout bounds all contact sends of one escalation.
	DefaultNotifyTimeout = 10 * time.Second

	defaultNotifyConcurrency = 4
)

// Observer is told about escalation outcomes, typically to record metrics.
type Observer interface {
	Escalated(ctx context.Context, action threat.Action)
	Notified(ctx context.Context, success bool)
}

// OrchestratorConfig holds configuration for the orchestrator.
type OrchestratorConfig struct {
	Notifier   Notifier
	Dispatches DispatchRepository
	Publisher  EventPublisher
	Observer   Observer

	// NotifyTimeout bounds contact notification (default 10s).
	NotifyTimeout time.Duration

	// NotifyConcurrency caps parallel sends (default 4).
	NotifyConcurrency int

	// MaxLiveUpdates caps the updates kept on a dispatch; the oldest are
	// dropped first (default session.DefaultThreatHistory).
	MaxLiveUpdates int

	Logger zerolog.Logger
	Now    func() time.Time
}

// Orchestrator runs the escalation path for sessions whose assessment calls
// for a silent dispatch or an emergency escalation. Callers must hold the
// session exclusively for the duration of Escalate.
type Orchestrator struct {
	notifier    Notifier
	dispatches  DispatchRepository
	publisher   EventPublisher
	observer    Observer
	timeout     time.Duration
	concurrency int
	maxUpdates  int
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Notifier == nil {
		cfg.Notifier = &LogNotifier{Logger: cfg.Logger}
	}
	if cfg.Dispatches == nil {
		cfg.Dispatches = NewInMemoryRepository()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = NopPublisher{}
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	if cfg.NotifyConcurrency <= 0 {
		cfg.NotifyConcurrency = defaultNotifyConcurrency
	}
	if cfg.MaxLiveUpdates <= 0 {
		cfg.MaxLiveUpdates = session.DefaultThreatHistory
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Orchestrator{
		notifier:    cfg.Notifier,
		dispatches:  cfg.Dispatches,
		publisher:   cfg.Publisher,
		observer:    cfg.Observer,
		timeout:     cfg.NotifyTimeout,
		concurrency: cfg.NotifyConcurrency,
		maxUpdates:  cfg.MaxLiveUpdates,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

// Dispatch returns a stored dispatch.
func (o *Orchestrator) Dispatch(ctx context.Context, id string) (*Dispatch, error) {
	return o.dispatches.Get(ctx, id)
}

// Escalate applies a to sess. It returns nil when the action does not
// escalate. sess is mutated in place: contacts are marked notified, the
// dispatch ID is recorded and an active session moves to emergency. loc
// defaults to the last recorded location.
func (o *Orchestrator) Escalate(ctx context.Context, sess *session.RideSession, a threat.Assessment, loc *geo.Location) (*Result, error) {
	if !a.Action.Escalates() {
		return nil, nil
	}

	now := o.now()
	if loc == nil {
		if last, ok := sess.LastLocation(); ok {
			loc = &last
		}
	}

	var actions []string
	eventType := EventDispatchUpdated

	d, err := o.dispatchFor(ctx, sess)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = &Dispatch{
			ID:               "dsp_" + uuid.New().String()[:22],
			SessionID:        sess.ID,
			TriggeredAt:      now,
			ThreatScore:      a.Score,
			LiveUpdates:      []LiveUpdate{},
			ContactsNotified: []string{},
			EvidencePacket:   BuildEvidencePacket(sess, Reason(a), now),
			UpdatedAt:        now,
		}
		// Claim the session's dispatch before anyone is contacted.
		if err := o.dispatches.Put(ctx, d); err != nil {
			return nil, fmt.Errorf("creating dispatch for session %s: %w", sess.ID, err)
		}
		sess.DispatchID = d.ID
		actions = append(actions, ActionLiveTracking)
		eventType = EventDispatchCreated
	} else {
		d.LiveUpdates = append(d.LiveUpdates, LiveUpdate{
			Timestamp: now,
			Location:  loc,
			Score:     a.Score,
			Level:     a.Level,
			Action:    a.Action,
		})
		if n := len(d.LiveUpdates); n > o.maxUpdates {
			d.LiveUpdates = append([]LiveUpdate(nil), d.LiveUpdates[n-o.maxUpdates:]...)
		}
		if a.Score > d.ThreatScore {
			d.ThreatScore = a.Score
		}
	}
	if loc != nil {
		l := *loc
		d.LastKnownLocation = &l
	}

	actions = append(actions, o.notifyContacts(ctx, sess, d, a, now)...)

	if a.Action.IsEmergency() && !d.EmergencyServicesNotified {
		// Simulated: no call is placed, but the record reflects one.
		d.EmergencyServicesNotified = true
		t := now
		d.EmergencyServicesAt = &t
		actions = append(actions, ActionEmergencyServices)
		eventType = EventEmergencyStarted
	}

	if sess.Status == session.StatusActive {
		if err := sess.Transition(session.StatusEmergency, now); err != nil {
			return nil, err
		}
	}
	sess.UpdatedAt = now
	d.UpdatedAt = now

	if err := o.dispatches.Put(ctx, d); err != nil {
		return nil, fmt.Errorf("saving dispatch %s: %w", d.ID, err)
	}

	o.logEscalation(sess, d, a, actions)
	if o.observer != nil {
		o.observer.Escalated(ctx, a.Action)
	}

	event := DispatchEvent{
		Type:                      eventType,
		DispatchID:                d.ID,
		SessionID:                 sess.ID,
		ThreatScore:               a.Score,
		EmergencyServicesNotified: d.EmergencyServicesNotified,
		Actions:                   actions,
		OccurredAt:                now,
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn().Err(err).Str("dispatch_id", d.ID).Msg("failed to publish dispatch event")
	}

	return &Result{
		DispatchID: d.ID,
		Actions:    actions,
		Packet:     d.EvidencePacket,
		Dispatch:   d,
	}, nil
}

func (o *Orchestrator) dispatchFor(ctx context.Context, sess *session.RideSession) (*Dispatch, error) {
	if sess.DispatchID == "" {
		return nil, nil
	}
	d, err := o.dispatches.Get(ctx, sess.DispatchID)
	if err != nil {
		return nil, fmt.Errorf("loading dispatch %s: %w", sess.DispatchID, err)
	}
	return d, nil
}

type pendingSend struct {
	index  int
	msg    Message
	result SendResult
}

// notifyContacts sends to every eligible contact concurrently, then applies
// the outcomes one by one so the session is only touched from this goroutine.
func (o *Orchestrator) notifyContacts(ctx context.Context, sess *session.RideSession, d *Dispatch, a threat.Assessment, now time.Time) []string {
	var (
		actions []string
		pending []*pendingSend
	)
	for i, c := range sess.EmergencyContacts {
		if c.Notified || d.HasNotified(c.ID) {
			continue
		}
		if !c.CanEmail() {
			o.logger.Debug().Str("contact_id", c.ID).Msg("contact has no usable email, skipping")
			continue
		}
		msg, err := BuildMessage(c, sess, d, a)
		if err != nil {
			actions = append(actions, fmt.Sprintf("%s:%s: %v", ActionNotifyFailed, c.ID, err))
			continue
		}
		pending = append(pending, &pendingSend{index: i, msg: msg})
	}
	if len(pending) == 0 {
		return actions
	}

	sendCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for _, p := range pending {
		g.Go(func() error {
			p.result = o.notifier.Send(sendCtx, p.msg)
			if !p.result.Success && p.result.Error == "" && sendCtx.Err() != nil {
				p.result.Error = sendCtx.Err().Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range pending {
		c := &sess.EmergencyContacts[p.index]
		if o.observer != nil {
			o.observer.Notified(ctx, p.result.Success)
		}
		if !p.result.Success {
			reason := p.result.Error
			if reason == "" {
				reason = "unknown error"
			}
			o.logger.Warn().
				Str("session_id", sess.ID).
				Str("contact_id", c.ID).
				Str("reason", reason).
				Msg("failed to notify emergency contact")
			actions = append(actions, fmt.Sprintf("%s:%s: %s", ActionNotifyFailed, c.ID, reason))
			continue
		}

		t := now
		c.Notified = true
		c.NotifiedAt = &t
		d.ContactsNotified = append(d.ContactsNotified, c.ID)
		d.EvidencePacket.EmergencyContactsNotified = append(d.EvidencePacket.EmergencyContactsNotified, *c)
		actions = append(actions, ActionContactNotified+":"+c.ID)
	}
	return actions
}

func (o *Orchestrator) logEscalation(sess *session.RideSession, d *Dispatch, a threat.Assessment, actions []string) {
	event := o.logger.Warn()
	if a.Action.IsEmergency() {
		event = o.logger.Error()
	}
	event.
		Str("session_id", sess.ID).
		Str("dispatch_id", d.ID).
		Str("level", string(a.Level)).
		Str("action", string(a.Action)).
		Float64("score", a.Score).
		Strs("actions", actions).
		Msg("ride escalated")
}
