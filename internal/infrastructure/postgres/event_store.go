package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"emsp/internal/domain/event"
	"emsp/internal/domain/outbox"
)

type EventStore struct {
	pool    *pgxpool.Pool
	catalog *event.Catalog
	logger  *slog.Logger
}

func NewEventStore(pool *pgxpool.Pool, catalog *event.Catalog, logger *slog.Logger) *EventStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventStore{pool: pool, catalog: catalog, logger: logger}
}

const recordColumns = `event_id, event_type, aggregate_type, aggregate_id, payload, "timestamp", status, version`

// Save upserts the event. A PROCESSED record is never moved back to PENDING.
func (s *EventStore) Save(ctx context.Context, e event.Event) error {
	rec, err := outbox.Encode(e)
	if err != nil {
		return err
	}

	const sql = `
		INSERT INTO domain_events (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		ON CONFLICT (event_id) DO UPDATE
		SET event_type = EXCLUDED.event_type,
			aggregate_type = EXCLUDED.aggregate_type,
			aggregate_id = EXCLUDED.aggregate_id,
			payload = EXCLUDED.payload,
			status = EXCLUDED.status,
			version = domain_events.version + 1
		WHERE domain_events.status <> 'PROCESSED' OR EXCLUDED.status = 'PROCESSED'
	`

	tag, err := conn(ctx, s.pool).Exec(ctx, sql,
		rec.EventID, rec.EventType, rec.AggregateType, rec.AggregateID, rec.Payload, rec.Timestamp, string(rec.Status))
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", rec.EventID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", outbox.ErrStaleWrite, rec.EventID)
	}
	return nil
}

func (s *EventStore) FindByID(ctx context.Context, eventID string) (event.Event, error) {
	rec, err := s.FindRecord(ctx, eventID)
	if err != nil {
		return nil, err
	}
	e, err := outbox.Decode(s.catalog, *rec)
	if err != nil {
		s.logger.Error("failed to reconstruct stored event", "event_id", eventID, "event_type", rec.EventType, "error", err)
		return nil, fmt.Errorf("%w: %w", outbox.ErrNotFound, err)
	}
	return e, nil
}

func (s *EventStore) FindRecord(ctx context.Context, eventID string) (*outbox.Record, error) {
	const sql = `SELECT ` + recordColumns + ` FROM domain_events WHERE event_id = $1`

	rec, err := scanRecord(conn(ctx, s.pool).QueryRow(ctx, sql, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", outbox.ErrNotFound, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	return rec, nil
}

func (s *EventStore) FindUnprocessed(ctx context.Context) ([]event.Event, error) {
	records, err := s.ListRecords(ctx, event.StatusPending, 0)
	if err != nil {
		return nil, err
	}

	events := make([]event.Event, 0, len(records))
	for _, rec := range records {
		e, err := outbox.Decode(s.catalog, *rec)
		if err != nil {
			s.logger.Error("skipping undecodable event", "event_id", rec.EventID, "event_type", rec.EventType, "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// ListRecords returns raw records with the given status, oldest first.
// A limit of zero means no limit.
func (s *EventStore) ListRecords(ctx context.Context, status event.Status, limit int) ([]*outbox.Record, error) {
	sql := `SELECT ` + recordColumns + `
		FROM domain_events
		WHERE status = $1
		ORDER BY "timestamp" ASC, event_id ASC`
	args := []any{string(status)}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := conn(ctx, s.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var records []*outbox.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

func (s *EventStore) StatusOf(ctx context.Context, eventID string) (event.Status, error) {
	const sql = `SELECT status FROM domain_events WHERE event_id = $1`

	var raw string
	err := conn(ctx, s.pool).QueryRow(ctx, sql, eventID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", outbox.ErrNotFound, eventID)
	}
	if err != nil {
		return "", fmt.Errorf("get status of event %s: %w", eventID, err)
	}
	return event.ParseStatus(raw)
}

func scanRecord(row pgx.Row) (*outbox.Record, error) {
	var (
		rec    outbox.Record
		status string
	)
	if err := row.Scan(&rec.EventID, &rec.EventType, &rec.AggregateType, &rec.AggregateID,
		&rec.Payload, &rec.Timestamp, &status, &rec.Version); err != nil {
		return nil, err
	}
	rec.Status = event.Status(status)
	rec.Timestamp = rec.Timestamp.UTC()
	return &rec, nil
}
