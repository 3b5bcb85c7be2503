package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ebioscore/platform/internal/shared/errors"
	"github.com/ebioscore/platform/internal/shared/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Recorder subscribes to the event bus and persists every event into
// the audit log. It is the durable trail behind the in-memory bus.
type Recorder struct {
	pool *pgxpool.Pool
	bus  events.EventBus
	log  *zap.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(pool *pgxpool.Pool, bus events.EventBus, log *zap.Logger) *Recorder {
	return &Recorder{pool: pool, bus: bus, log: log}
}

// Start subscribes the recorder to all events
func (r *Recorder) Start(ctx context.Context) error {
	return r.bus.Subscribe(ctx, "*", "audit-recorder", r.record)
}

func (r *Recorder) record(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}

	var actorID *string
	if !event.ActorID.IsZero() {
		s := event.ActorID.String()
		actorID = &s
	}

	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}
	occurredAt := event.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit.audit_log (id, event_type, source, actor_id, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		id, event.Type, event.Source, actorID, occurredAt, payload)
	if err != nil {
		r.log.Error("failed to record audit entry",
			zap.String("event_id", id),
			zap.String("event_type", event.Type),
			zap.Error(err))
		return err
	}

	return nil
}

// Entry is one row of the audit trail
type Entry struct {
	ID         string          `json:"id"`
	EventType  string          `json:"eventType"`
	Source     string          `json:"source"`
	ActorID    string          `json:"actorId,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// ListFilter defines filters for querying the audit trail
type ListFilter struct {
	EventType string
	Source    string
	From      time.Time
	To        time.Time
	Limit     int
}

// List queries the audit trail, newest first
func (r *Recorder) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	query := `
		SELECT id, event_type, source, actor_id, occurred_at, payload
		FROM audit.audit_log
		WHERE 1=1`
	var args []interface{}
	argNum := 1

	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argNum)
		args = append(args, filter.EventType)
		argNum++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(" AND source = $%d", argNum)
		args = append(args, filter.Source)
		argNum++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argNum)
		args = append(args, filter.From)
		argNum++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND occurred_at < $%d", argNum)
		args = append(args, filter.To)
		argNum++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d", argNum)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query audit log")
	}
	defer rows.Close()

	var list []Entry
	for rows.Next() {
		var e Entry
		var actorID *string
		if err := rows.Scan(&e.ID, &e.EventType, &e.Source, &actorID, &e.OccurredAt, &e.Payload); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit entry")
		}
		if actorID != nil {
			e.ActorID = *actorID
		}
		list = append(list, e)
	}

	return list, nil
}
