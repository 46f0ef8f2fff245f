package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/costs"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// ErrInvalidDays is returned when an edited day list is empty or not numbered 1..n.
var ErrInvalidDays = errors.New("invalid days")

// Planner is implemented by *pipeline.Orchestrator.
type Planner interface {
	Run(ctx context.Context, prefs types.Preferences) (*types.Itinerary, error)
	Reorder(ctx context.Context, days []types.Day) []types.Day
}

// RateSource is implemented by *costs.RateCache.
type RateSource interface {
	Rates(ctx context.Context) map[string]float64
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Generate(ctx context.Context, userID *uuid.UUID, prefs types.Preferences) (*types.Itinerary, error)
	Get(ctx context.Context, id uuid.UUID, requester *uuid.UUID) (*types.Itinerary, error)
	Save(ctx context.Context, id, owner uuid.UUID) (*types.Itinerary, error)
	Claim(ctx context.Context, id, owner uuid.UUID) (*types.Itinerary, error)
	Delete(ctx context.Context, id, owner uuid.UUID) error
	SetVisibility(ctx context.Context, id, owner uuid.UUID, public bool) (*types.Itinerary, error)
	ListMine(ctx context.Context, owner uuid.UUID) ([]*types.Itinerary, error)
	UpdateDays(ctx context.Context, id uuid.UUID, requester *uuid.UUID, days []types.Day) (*types.Itinerary, error)
	Cost(ctx context.Context, id uuid.UUID, requester *uuid.UUID) (*costs.TripCost, error)
	SweepExpiredDrafts(ctx context.Context) (int64, error)
}

type Config struct {
	DraftTTL      time.Duration `mapstructure:"draft_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type ServiceImpl struct {
	logger  *slog.Logger
	repo    Repository
	planner Planner
	rates   RateSource
	cfg     Config
	metrics *metrics.AppMetrics
	now     func() time.Time
}

// NewServiceImpl creates the itinerary service. rates and m may be nil.
func NewServiceImpl(repo Repository, planner Planner, rates RateSource, cfg Config, m *metrics.AppMetrics, logger *slog.Logger) *ServiceImpl {
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = 24 * time.Hour
	}
	return &ServiceImpl{
		logger:  logger,
		repo:    repo,
		planner: planner,
		rates:   rates,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
	}
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// Generate runs the pipeline and stores the result. Guests get a draft that
// expires after DraftTTL; signed-in users own a saved itinerary right away.
func (s *ServiceImpl) Generate(ctx context.Context, userID *uuid.UUID, prefs types.Preferences) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("destination", prefs.Destination),
		attribute.Bool("guest", userID == nil),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Generate"))

	it, err := s.planner.Run(ctx, prefs)
	if err != nil {
		fail(span, err, "Pipeline failed")
		return nil, err
	}

	now := s.now()
	it.UpdatedAt = now
	if userID != nil {
		owner := *userID
		it.UserID = &owner
		it.Status = types.StatusSaved
		it.ExpiresAt = nil
	} else {
		expires := now.Add(s.cfg.DraftTTL)
		it.Status = types.StatusDraft
		it.ExpiresAt = &expires
	}

	if err := s.repo.Create(ctx, it); err != nil {
		l.ErrorContext(ctx, "Failed to store itinerary", slog.Any("error", err))
		fail(span, err, "Failed to store itinerary")
		return nil, fmt.Errorf("failed to store itinerary: %w", err)
	}

	l.InfoContext(ctx, "Itinerary stored",
		slog.String("itinerary_id", it.ID.String()),
		slog.String("status", string(it.Status)))
	span.SetStatus(codes.Ok, "Itinerary generated")
	return it, nil
}

// Get returns an itinerary visible to requester. Unclaimed itineraries are
// readable by anyone holding the id; owned ones only by the owner unless public.
func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID, requester *uuid.UUID) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Get", trace.WithAttributes(
		attribute.String("itinerary.id", id.String()),
	))
	defer span.End()

	it, err := s.repo.Get(ctx, id)
	if err != nil {
		fail(span, err, "Itinerary lookup failed")
		return nil, err
	}
	if it.UserID != nil && !it.IsPublic && (requester == nil || !it.OwnedBy(*requester)) {
		span.SetStatus(codes.Error, "Forbidden")
		return nil, ErrForbidden
	}
	span.SetStatus(codes.Ok, "Itinerary retrieved")
	return it, nil
}

// owned loads an itinerary and checks that owner holds it.
func (s *ServiceImpl) owned(ctx context.Context, id, owner uuid.UUID) (*types.Itinerary, error) {
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !it.OwnedBy(owner) {
		return nil, ErrForbidden
	}
	return it, nil
}

// Save turns a draft into a saved itinerary. An unclaimed draft is claimed
// by owner on the way.
func (s *ServiceImpl) Save(ctx context.Context, id, owner uuid.UUID) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Save", trace.WithAttributes(
		attribute.String("itinerary.id", id.String()),
	))
	defer span.End()

	it, err := s.repo.Get(ctx, id)
	if err != nil {
		fail(span, err, "Itinerary lookup failed")
		return nil, err
	}
	if it.UserID == nil {
		it, err = s.repo.Claim(ctx, id, owner, s.now())
		if err != nil {
			fail(span, err, "Claim failed")
			return nil, err
		}
		span.SetStatus(codes.Ok, "Itinerary claimed and saved")
		return it, nil
	}
	if !it.OwnedBy(owner) {
		span.SetStatus(codes.Error, "Forbidden")
		return nil, ErrForbidden
	}
	if it.Status == types.StatusSaved && it.ExpiresAt == nil {
		return it, nil
	}

	it.Status = types.StatusSaved
	it.ExpiresAt = nil
	it.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, it); err != nil {
		fail(span, err, "Update failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Itinerary saved")
	return it, nil
}

func (s *ServiceImpl) Claim(ctx context.Context, id, owner uuid.UUID) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Claim", trace.WithAttributes(
		attribute.String("itinerary.id", id.String()),
		attribute.String("user.id", owner.String()),
	))
	defer span.End()

	it, err := s.repo.Claim(ctx, id, owner, s.now())
	if err != nil {
		fail(span, err, "Claim failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Itinerary claimed")
	return it, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id, owner uuid.UUID) error {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("itinerary.id", id.String()),
	))
	defer span.End()

	if _, err := s.owned(ctx, id, owner); err != nil {
		fail(span, err, "Delete rejected")
		return err
	}
	if err := s.repo.Delete(ctx, id, owner); err != nil {
		fail(span, err, "Delete failed")
		return err
	}
	s.logger.InfoContext(ctx, "Itinerary deleted", slog.String("itinerary_id", id.String()))
	span.SetStatus(codes.Ok, "Itinerary deleted")
	return nil
}

func (s *ServiceImpl) SetVisibility(ctx context.Context, id, owner uuid.UUID, public bool) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "SetVisibility", trace.WithAttributes(
		attribute.String("itinerary.id", id.String()),
		attribute.Bool("public", public),
	))
	defer span.End()

	it, err := s.owned(ctx, id, owner)
	if err != nil {
		fail(span, err, "Visibility change rejected")
		return nil, err
	}
	if it.IsPublic == public {
		return it, nil
	}
	it.IsPublic = public
	it.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, it); err != nil {
		fail(span, err, "Update failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Visibility updated")
	return it, nil
}

func (s *ServiceImpl) ListMine(ctx context.Context, owner uuid.UUID) ([]*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ListMine")
	defer span.End()

	out, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		fail(span, err, "List failed")
		return nil, err
	}
	if out == nil {
		out = []*types.Itinerary{}
	}
	return out, nil
}

func validateDays(days []types.Day) error {
	if len(days) == 0 {
		return fmt.Errorf("%w: at least one day is required", ErrInvalidDays)
	}
	for i, d := range days {
		if d.Day != i+1 {
			return fmt.Errorf("%w: day %d found at position %d", ErrInvalidDays, d.Day, i+1)
		}
	}
	return nil
}

// UpdateDays replaces the schedule with a user edit and repairs its order.
// Unclaimed drafts can be edited by whoever holds the id.
func (s *ServiceImpl) UpdateDays(ctx context.Context, id uuid.UUID, requester *uuid.UUID, days []types.Day) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "UpdateDays", trace.WithAttributes(
		attribute.String("itinerary.id", id.String()),
		attribute.Int("days", len(days)),
	))
	defer span.End()

	if err := validateDays(days); err != nil {
		fail(span, err, "Invalid days")
		return nil, err
	}
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		fail(span, err, "Itinerary lookup failed")
		return nil, err
	}
	if it.UserID != nil && (requester == nil || !it.OwnedBy(*requester)) {
		span.SetStatus(codes.Error, "Forbidden")
		return nil, ErrForbidden
	}

	it.Days = s.planner.Reorder(ctx, days)
	it.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, it); err != nil {
		fail(span, err, "Update failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Days updated")
	return it, nil
}

// Cost estimates the trip spend with the current exchange rates.
func (s *ServiceImpl) Cost(ctx context.Context, id uuid.UUID, requester *uuid.UUID) (*costs.TripCost, error) {
	it, err := s.Get(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	var rates map[string]float64
	if s.rates != nil {
		rates = s.rates.Rates(ctx)
	}
	tc := costs.EstimateTripCost(it, rates)
	return &tc, nil
}

func (s *ServiceImpl) SweepExpiredDrafts(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredDrafts(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Expired drafts removed", slog.Int64("count", n))
		if s.metrics != nil {
			s.metrics.DraftsSweptTotal.Add(ctx, n)
		}
	}
	return n, nil
}

// StartDraftSweeper runs SweepExpiredDrafts every interval until ctx is done.
func (s *ServiceImpl) StartDraftSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.cfg.SweepInterval
	}
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			if _, err := s.SweepExpiredDrafts(runCtx); err != nil {
				s.logger.ErrorContext(ctx, "Draft sweep failed", slog.Any("error", err))
			}
			cancel()
		}
	}
}
