package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS snapshots (
        generated_at TIMESTAMPTZ PRIMARY KEY,
        payload      JSONB       NOT NULL,
        created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS placements (
        generated_at TIMESTAMPTZ NOT NULL REFERENCES snapshots (generated_at) ON DELETE CASCADE,
        position     SMALLINT    NOT NULL,
        body         TEXT        NOT NULL,
        longitude    NUMERIC     NOT NULL,
        speed        NUMERIC     NOT NULL,
        sign         TEXT        NOT NULL,
        deg          NUMERIC     NOT NULL,
        retrograde   BOOLEAN     NOT NULL,
        PRIMARY KEY (generated_at, body)
    );
    CREATE TABLE IF NOT EXISTS transitions (
        id          BIGSERIAL   PRIMARY KEY,
        occurred_at TIMESTAMPTZ NOT NULL,
        body        TEXT        NOT NULL,
        kind        TEXT        NOT NULL,
        from_sign   TEXT        NOT NULL,
        to_sign     TEXT        NOT NULL,
        channels    TEXT[]      NOT NULL DEFAULT '{}',
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (occurred_at, body, kind)
    );`

	upsertSnapshotSQL = `INSERT INTO snapshots (generated_at, payload)
    VALUES ($1, $2)
    ON CONFLICT (generated_at) DO UPDATE
    SET payload = EXCLUDED.payload;`

	deletePlacementsSQL = `DELETE FROM placements WHERE generated_at = $1;`

	insertPlacementSQL = `INSERT INTO placements (
        generated_at,
        position,
        body,
        longitude,
        speed,
        sign,
        deg,
        retrograde
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	listRecentSnapshotsSQL = `SELECT generated_at, payload, created_at
    FROM snapshots
    ORDER BY generated_at DESC
    LIMIT $1;`

	latestSnapshotBeforeSQL = `SELECT generated_at, payload, created_at
    FROM snapshots
    WHERE generated_at < $1
    ORDER BY generated_at DESC
    LIMIT 1;`

	listPlacementsSQL = `SELECT
        generated_at,
        position,
        body,
        longitude,
        speed,
        sign,
        deg,
        retrograde
    FROM placements
    WHERE generated_at = $1
    ORDER BY position;`

	listBodyPlacementsBetweenSQL = `SELECT
        generated_at,
        position,
        body,
        longitude,
        speed,
        sign,
        deg,
        retrograde
    FROM placements
    WHERE body = $1
      AND generated_at >= $2
      AND generated_at < $3
    ORDER BY generated_at;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM snapshots;`

	insertTransitionSQL = `INSERT INTO transitions (
        occurred_at,
        body,
        kind,
        from_sign,
        to_sign,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (occurred_at, body, kind) DO UPDATE
    SET from_sign = EXCLUDED.from_sign,
        to_sign   = EXCLUDED.to_sign,
        channels  = EXCLUDED.channels
    RETURNING id, occurred_at, body, kind, from_sign, to_sign, channels, created_at;`

	listRecentTransitionsSQL = `SELECT
        id,
        occurred_at,
        body,
        kind,
        from_sign,
        to_sign,
        channels,
        created_at
    FROM transitions
    ORDER BY occurred_at DESC
    LIMIT $1;`

	deleteSnapshotsBeforeSQL = `DELETE FROM snapshots WHERE generated_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore defines operations for snapshot history.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, rec SnapshotRecord) error
	LatestSnapshotBefore(ctx context.Context, before time.Time) (SnapshotRecord, bool, error)
	ListRecentSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error)
	ListBodyPlacementsBetween(ctx context.Context, body string, from, to time.Time) ([]PlacementRecord, error)
	CountSnapshots(ctx context.Context) (int64, error)
	DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) error
}

// TransitionStore defines operations for transition auditing.
type TransitionStore interface {
	InsertTransition(ctx context.Context, rec TransitionRecord) (TransitionRecord, error)
	ListRecentTransitions(ctx context.Context, limit int) ([]TransitionRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to snapshots, placements and transitions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the history tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the session lock also dies with the connection
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// UpsertSnapshot persists a snapshot and replaces its placements in one transaction.
func (s *Store) UpsertSnapshot(ctx context.Context, rec SnapshotRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertSnapshotSQL, rec.GeneratedAt, []byte(rec.Payload)); err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}
		if _, err := tx.Exec(ctx, deletePlacementsSQL, rec.GeneratedAt); err != nil {
			return fmt.Errorf("clear placements: %w", err)
		}

		batch := &pgx.Batch{}
		for _, p := range rec.Placements {
			batch.Queue(insertPlacementSQL,
				rec.GeneratedAt,
				p.Position,
				p.Body,
				p.Longitude.String(),
				p.Speed.String(),
				p.Sign,
				p.Deg.String(),
				p.Retrograde,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert placements: %w", err)
		}
		return nil
	})
}

// LatestSnapshotBefore returns the newest snapshot strictly older than before.
func (s *Store) LatestSnapshotBefore(ctx context.Context, before time.Time) (SnapshotRecord, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return SnapshotRecord{}, false, err
	}

	var rec SnapshotRecord
	var payload []byte
	scanErr := pool.QueryRow(ctx, latestSnapshotBeforeSQL, before).Scan(&rec.GeneratedAt, &payload, &rec.CreatedAt)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return SnapshotRecord{}, false, nil
	}
	if scanErr != nil {
		return SnapshotRecord{}, false, fmt.Errorf("latest snapshot: %w", scanErr)
	}
	rec.Payload = payload

	rows, queryErr := pool.Query(ctx, listPlacementsSQL, rec.GeneratedAt)
	if queryErr != nil {
		return SnapshotRecord{}, false, fmt.Errorf("list placements: %w", queryErr)
	}
	rec.Placements, err = collectPlacements(rows)
	if err != nil {
		return SnapshotRecord{}, false, err
	}
	return rec, true, nil
}

// ListRecentSnapshots lists the most recent snapshots ordered by descending instant.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	records := make([]SnapshotRecord, 0, limit)
	for rows.Next() {
		var rec SnapshotRecord
		var payload []byte
		if err := rows.Scan(&rec.GeneratedAt, &payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Payload = payload
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListBodyPlacementsBetween lists one body's placements within a time window.
func (s *Store) ListBodyPlacementsBetween(ctx context.Context, body string, from, to time.Time) ([]PlacementRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listBodyPlacementsBetweenSQL, body, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list placements between: %w", queryErr)
	}
	return collectPlacements(rows)
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

// DeleteSnapshotsBefore prunes history; placements cascade.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteSnapshotsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete snapshots before: %w", execErr)
	}
	return nil
}

// InsertTransition persists an announced transition.
func (s *Store) InsertTransition(ctx context.Context, rec TransitionRecord) (TransitionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return TransitionRecord{}, err
	}

	channels := rec.Channels
	if channels == nil {
		channels = []string{}
	}

	row := pool.QueryRow(ctx, insertTransitionSQL,
		rec.OccurredAt,
		rec.Body,
		rec.Kind,
		rec.FromSign,
		rec.ToSign,
		channels,
	)

	var out TransitionRecord
	if scanErr := row.Scan(
		&out.ID,
		&out.OccurredAt,
		&out.Body,
		&out.Kind,
		&out.FromSign,
		&out.ToSign,
		&out.Channels,
		&out.CreatedAt,
	); scanErr != nil {
		return TransitionRecord{}, fmt.Errorf("insert transition: %w", scanErr)
	}
	return out, nil
}

// ListRecentTransitions lists the most recent transitions.
func (s *Store) ListRecentTransitions(ctx context.Context, limit int) ([]TransitionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentTransitionsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent transitions: %w", queryErr)
	}
	defer rows.Close()

	out := make([]TransitionRecord, 0, limit)
	for rows.Next() {
		var rec TransitionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.OccurredAt,
			&rec.Body,
			&rec.Kind,
			&rec.FromSign,
			&rec.ToSign,
			&rec.Channels,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func collectPlacements(rows pgx.Rows) ([]PlacementRecord, error) {
	defer rows.Close()

	placements := make([]PlacementRecord, 0)
	for rows.Next() {
		p, err := scanPlacement(rows)
		if err != nil {
			return nil, err
		}
		placements = append(placements, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return placements, nil
}

func scanPlacement(rows pgx.Rows) (PlacementRecord, error) {
	var (
		p            PlacementRecord
		position     int16
		longitudeStr string
		speedStr     string
		degStr       string
	)

	if err := rows.Scan(
		&p.GeneratedAt,
		&position,
		&p.Body,
		&longitudeStr,
		&speedStr,
		&p.Sign,
		&degStr,
		&p.Retrograde,
	); err != nil {
		return PlacementRecord{}, err
	}
	p.Position = int(position)

	var err error
	if p.Longitude, err = decimal.NewFromString(longitudeStr); err != nil {
		return PlacementRecord{}, fmt.Errorf("parse longitude: %w", err)
	}
	if p.Speed, err = decimal.NewFromString(speedStr); err != nil {
		return PlacementRecord{}, fmt.Errorf("parse speed: %w", err)
	}
	if p.Deg, err = decimal.NewFromString(degStr); err != nil {
		return PlacementRecord{}, fmt.Errorf("parse deg: %w", err)
	}
	return p, nil
}

var (
	_ SnapshotStore   = (*Store)(nil)
	_ TransitionStore = (*Store)(nil)
	_ AdvisoryLocker  = (*Store)(nil)
)
