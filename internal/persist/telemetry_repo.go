package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TelemetryEvent is one recorded gameplay event.
type TelemetryEvent struct {
	Session   uuid.UUID
	Tick      uint64
	At        time.Time
	Kind      string // "phase", "day", "blood_moon", "spawn", "spawn_skipped", "placed", "rejected", "snapshot"
	Day       int
	Phase     string
	Archetype string
	X, Y      float64
	Detail    string

	// snapshot rows only
	Enemies    int
	Structures int
	Coins      int
}

type TelemetryRepo struct {
	db *DB
}

func NewTelemetryRepo(db *DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

// WriteTelemetry inserts a batch of events in a single transaction.
func (r *TelemetryRepo) WriteTelemetry(ctx context.Context, events []TelemetryEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("telemetry begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(
			`INSERT INTO telemetry_events (session_id, tick, recorded_at, kind, day, phase, archetype, pos_x, pos_y, detail, enemies, structures, coins)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			e.Session, int64(e.Tick), e.At, e.Kind, e.Day, e.Phase, e.Archetype, e.X, e.Y, e.Detail, e.Enemies, e.Structures, e.Coins,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("telemetry insert: %w", err)
	}

	return tx.Commit(ctx)
}

// CountSession returns how many events a session has recorded.
func (r *TelemetryRepo) CountSession(ctx context.Context, session uuid.UUID) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM telemetry_events WHERE session_id = $1`, session,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("telemetry count: %w", err)
	}
	return n, nil
}
