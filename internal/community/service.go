package community

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/geo"
)

// Service errors.
var (
	ErrInvalidType = errors.New("invalid report type")
)

// ServiceConfig configures the community report service.
type ServiceConfig struct {
	Logger zerolog.Logger

	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// SubmitInput is a new report as received from a rider.
type SubmitInput struct {
	ReporterID         string
	ReporterTrustScore float64
	Location           geo.Location
	Type               Type
	Description        string
	VerificationCount  int
	IsVerified         bool
}

// Service stores community reports and validates them on arrival.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new community report service.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:   repo,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
}

// Submit validates input against the stored reports and stores it. Invalid
// reports are still stored so they count toward later frequency and spike
// checks; the returned Validation tells the caller how it was judged.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*Report, Validation, error) {
	if !input.Type.Valid() {
		return nil, Validation{}, fmt.Errorf("%w: %q", ErrInvalidType, input.Type)
	}

	now := s.now()
	report := Report{
		ID:                 "rpt_" + uuid.New().String()[:22],
		ReporterID:         input.ReporterID,
		ReporterTrustScore: input.ReporterTrustScore,
		Location:           input.Location,
		Type:               input.Type,
		Description:        input.Description,
		Timestamp:          now,
		VerificationCount:  input.VerificationCount,
		IsVerified:         input.IsVerified,
	}
	if report.Location.Timestamp.IsZero() {
		report.Location.Timestamp = now
	}

	existing, err := s.repo.List(ctx, ListOptions{})
	if err != nil {
		return nil, Validation{}, fmt.Errorf("list reports: %w", err)
	}
	validation := Validate(report, existing, now)

	if err := s.repo.Create(ctx, &report); err != nil {
		return nil, Validation{}, fmt.Errorf("store report: %w", err)
	}

	event := s.logger.Info()
	if !validation.Valid {
		event = s.logger.Warn().Str("reason", validation.Reason)
	}
	event.
		Str("report_id", report.ID).
		Str("reporter_id", report.ReporterID).
		Str("type", string(report.Type)).
		Float64("weight", validation.Weight).
		Msg("community report submitted")

	return &report, validation, nil
}

// Get retrieves a stored report.
func (s *Service) Get(ctx context.Context, id string) (*Report, error) {
	return s.repo.Get(ctx, id)
}

// List returns stored reports, oldest first.
func (s *Service) List(ctx context.Context, limit int) ([]Report, error) {
	return s.repo.List(ctx, ListOptions{Limit: limit})
}

// Snapshot builds an indexed Set over every stored report for route scoring.
func (s *Service) Snapshot(ctx context.Context) (*Set, error) {
	reports, err := s.repo.List(ctx, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return NewSet(reports), nil
}
