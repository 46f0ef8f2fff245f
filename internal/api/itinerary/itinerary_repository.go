package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var (
	ErrNotFound       = errors.New("itinerary not found")
	ErrAlreadyClaimed = errors.New("itinerary already claimed")
	ErrForbidden      = errors.New("itinerary belongs to another user")
)

// Repository stores itineraries. Mutations are keyed by (id, owner); Claim
// only succeeds while the itinerary is still ownerless.
type Repository interface {
	Create(ctx context.Context, it *types.Itinerary) error
	Get(ctx context.Context, id uuid.UUID) (*types.Itinerary, error)
	Update(ctx context.Context, it *types.Itinerary) error
	Delete(ctx context.Context, id, owner uuid.UUID) error
	Claim(ctx context.Context, id, owner uuid.UUID, now time.Time) (*types.Itinerary, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*types.Itinerary, error)
	DeleteExpiredDrafts(ctx context.Context, now time.Time) (int64, error)
}

// DB is the part of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*PostgresRepository)(nil)

type PostgresRepository struct {
	logger  *slog.Logger
	db      DB
	metrics *metrics.AppMetrics
}

// NewPostgresRepository builds the pgx store. m may be nil.
func NewPostgresRepository(db DB, m *metrics.AppMetrics, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, db: db, metrics: m}
}

const itineraryColumns = `id, user_id, currency, is_public, status, expires_at, prefs, days, created_at, updated_at`

func (r *PostgresRepository) observe(ctx context.Context, op string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", op))
	r.metrics.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAlreadyClaimed) {
		r.metrics.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

func scanItinerary(row pgx.Row) (*types.Itinerary, error) {
	var (
		it     types.Itinerary
		status string
		prefs  []byte
		days   []byte
	)
	err := row.Scan(&it.ID, &it.UserID, &it.Currency, &it.IsPublic, &status, &it.ExpiresAt,
		&prefs, &days, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.Status = types.ItineraryStatus(status)
	if err := json.Unmarshal(prefs, &it.Prefs); err != nil {
		return nil, fmt.Errorf("failed to decode prefs: %w", err)
	}
	if err := json.Unmarshal(days, &it.Days); err != nil {
		return nil, fmt.Errorf("failed to decode days: %w", err)
	}
	return &it, nil
}

func encode(it *types.Itinerary) (prefs, days []byte, err error) {
	if prefs, err = json.Marshal(it.Prefs); err != nil {
		return nil, nil, fmt.Errorf("failed to encode prefs: %w", err)
	}
	if it.Days == nil {
		return prefs, []byte("[]"), nil
	}
	if days, err = json.Marshal(it.Days); err != nil {
		return nil, nil, fmt.Errorf("failed to encode days: %w", err)
	}
	return prefs, days, nil
}

func (r *PostgresRepository) Create(ctx context.Context, it *types.Itinerary) (err error) {
	defer func(start time.Time) { r.observe(ctx, "create", start, err) }(time.Now())

	prefs, days, err := encode(it)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO itineraries (` + itineraryColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err = r.db.Exec(ctx, query,
		it.ID, it.UserID, it.Currency, it.IsPublic, string(it.Status), it.ExpiresAt,
		prefs, days, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to create itinerary: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (it *types.Itinerary, err error) {
	defer func(start time.Time) { r.observe(ctx, "get", start, err) }(time.Now())

	query := `SELECT ` + itineraryColumns + ` FROM itineraries WHERE id = $1`
	it, err = scanItinerary(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get itinerary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get itinerary: %w", err)
	}
	return it, nil
}

// Update replaces the mutable fields. The row must still belong to it.UserID;
// for an unclaimed itinerary that means user_id is still NULL.
func (r *PostgresRepository) Update(ctx context.Context, it *types.Itinerary) (err error) {
	defer func(start time.Time) { r.observe(ctx, "update", start, err) }(time.Now())

	prefs, days, err := encode(it)
	if err != nil {
		return err
	}
	query := `
        UPDATE itineraries
        SET currency = $3, is_public = $4, status = $5, expires_at = $6,
            prefs = $7, days = $8, updated_at = $9
        WHERE id = $1 AND user_id IS NOT DISTINCT FROM $2
    `
	tag, err := r.db.Exec(ctx, query,
		it.ID, it.UserID, it.Currency, it.IsPublic, string(it.Status), it.ExpiresAt,
		prefs, days, it.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to update itinerary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, owner uuid.UUID) (err error) {
	defer func(start time.Time) { r.observe(ctx, "delete", start, err) }(time.Now())

	tag, err := r.db.Exec(ctx, `DELETE FROM itineraries WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to delete itinerary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Claim assigns an owner with a single conditional update, so of two
// concurrent claims only one matches the user_id IS NULL predicate.
func (r *PostgresRepository) Claim(ctx context.Context, id, owner uuid.UUID, now time.Time) (it *types.Itinerary, err error) {
	defer func(start time.Time) { r.observe(ctx, "claim", start, err) }(time.Now())
	l := r.logger.With(slog.String("method", "Claim"), slog.String("itinerary_id", id.String()))

	query := `
        UPDATE itineraries
        SET user_id = $2, status = $3, expires_at = NULL, updated_at = $4
        WHERE id = $1 AND user_id IS NULL
        RETURNING ` + itineraryColumns
	it, err = scanItinerary(r.db.QueryRow(ctx, query, id, owner, string(types.StatusSaved), now))
	if err == nil {
		l.InfoContext(ctx, "Itinerary claimed", slog.String("user_id", owner.String()))
		return it, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		l.ErrorContext(ctx, "Failed to claim itinerary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to claim itinerary: %w", err)
	}

	var exists bool
	if err = r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM itineraries WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check itinerary: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	l.WarnContext(ctx, "Claim rejected, itinerary already owned")
	return nil, ErrAlreadyClaimed
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, owner uuid.UUID) (out []*types.Itinerary, err error) {
	defer func(start time.Time) { r.observe(ctx, "list", start, err) }(time.Now())

	query := `SELECT ` + itineraryColumns + ` FROM itineraries WHERE user_id = $1 ORDER BY updated_at DESC`
	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list itineraries", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list itineraries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan itinerary", slog.Any("error", err))
			return nil, fmt.Errorf("failed to scan itinerary: %w", err)
		}
		out = append(out, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating itinerary rows: %w", err)
	}
	return out, nil
}

// DeleteExpiredDrafts removes unclaimed drafts whose expiry has passed.
func (r *PostgresRepository) DeleteExpiredDrafts(ctx context.Context, now time.Time) (n int64, err error) {
	defer func(start time.Time) { r.observe(ctx, "sweep", start, err) }(time.Now())

	query := `
        DELETE FROM itineraries
        WHERE user_id IS NULL AND status = $1 AND expires_at IS NOT NULL AND expires_at < $2
    `
	tag, err := r.db.Exec(ctx, query, string(types.StatusDraft), now)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete expired drafts", slog.Any("error", err))
		return 0, fmt.Errorf("failed to delete expired drafts: %w", err)
	}
	return tag.RowsAffected(), nil
}
