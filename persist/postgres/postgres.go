// Package postgres implements the persistence gateway on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	lockderrors "github.com/nedzof/lockd.app-sub000/errors"
	"github.com/nedzof/lockd.app-sub000/lockproto"
)

const schema = `
CREATE TABLE IF NOT EXISTS lockd_records (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tx_id TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL,
	post_id TEXT,
	block_height BIGINT NOT NULL DEFAULT 0,
	confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	block_time TIMESTAMPTZ,
	author TEXT,
	content TEXT,
	tags TEXT[],
	metadata JSONB,
	lock_amount BIGINT NOT NULL DEFAULT 0,
	lock_duration BIGINT NOT NULL DEFAULT 0,
	media_type TEXT,
	media_bytes BYTEA,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS lockd_records_height_idx
	ON lockd_records (block_height) WHERE confirmed;

CREATE TABLE IF NOT EXISTS lockd_vote_options (
	tx_id TEXT NOT NULL REFERENCES lockd_records (tx_id) ON DELETE CASCADE,
	position INT NOT NULL,
	label TEXT NOT NULL,
	PRIMARY KEY (tx_id, position)
);

CREATE TABLE IF NOT EXISTS lockd_failures (
	tx_id TEXT PRIMARY KEY,
	error TEXT NOT NULL,
	raw BYTEA,
	attempts INT NOT NULL DEFAULT 1,
	last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Gateway stores canonical records in PostgreSQL. Upserts key on tx_id, so
// redelivered transactions collapse into a single row.
type Gateway struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects, verifies the connection and bootstraps the schema
func New(ctx context.Context, connStr string, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, lockderrors.WrapFatal(err, "postgres", "New", "parse connection string")
	}
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, lockderrors.WrapFatal(err, "postgres", "New", "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, lockderrors.WrapTransient(err, "postgres", "New", "ping database")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, lockderrors.WrapFatal(err, "postgres", "New", "bootstrap schema")
	}

	logger.Info("postgres gateway ready")
	return &Gateway{pool: pool, logger: logger}, nil
}

// UpsertRecord implements persist.Gateway. Vote options land in their own
// table in the same transaction as the record row.
func (g *Gateway) UpsertRecord(ctx context.Context, rec *lockproto.Record) (string, error) {
	if rec == nil || rec.TxID == "" {
		return "", lockderrors.WrapInvalid(lockderrors.ErrInvalidRecord,
			"postgres", "UpsertRecord", "validate record")
	}

	var metadata []byte
	if len(rec.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(rec.Metadata)
		if err != nil {
			return "", lockderrors.WrapInvalid(err, "postgres", "UpsertRecord", "encode metadata")
		}
	}

	var mediaType *string
	var mediaBytes []byte
	if rec.Media != nil {
		mediaType = &rec.Media.ContentType
		mediaBytes = rec.Media.Bytes
	}

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return "", lockderrors.WrapTransient(err, "postgres", "UpsertRecord", "begin transaction")
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO lockd_records (
			tx_id, kind, post_id, block_height, confirmed, block_time,
			author, content, tags, metadata, lock_amount, lock_duration,
			media_type, media_bytes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tx_id) DO UPDATE SET
			block_height = EXCLUDED.block_height,
			confirmed = lockd_records.confirmed OR EXCLUDED.confirmed,
			block_time = EXCLUDED.block_time,
			updated_at = NOW()
		RETURNING id`,
		rec.TxID, string(rec.Kind), nullableString(rec.PostID),
		int64(rec.BlockHeight), rec.Confirmed, nullableTime(rec.BlockTime),
		nullableString(rec.Author), nullableString(rec.Content), rec.Tags,
		metadata, rec.LockAmount, int64(rec.LockDuration),
		mediaType, mediaBytes,
	).Scan(&id)
	if err != nil {
		return "", lockderrors.WrapTransient(err, "postgres", "UpsertRecord", "upsert record")
	}

	if rec.Vote != nil {
		for i, label := range rec.Vote.Options {
			if _, err := tx.Exec(ctx, `
				INSERT INTO lockd_vote_options (tx_id, position, label)
				VALUES ($1, $2, $3)
				ON CONFLICT (tx_id, position) DO NOTHING`,
				rec.TxID, i, label,
			); err != nil {
				return "", lockderrors.WrapTransient(err, "postgres", "UpsertRecord", "insert vote option")
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", lockderrors.WrapTransient(err, "postgres", "UpsertRecord", "commit transaction")
	}
	return id, nil
}

// MaxProcessedHeight implements persist.Gateway
func (g *Gateway) MaxProcessedHeight(ctx context.Context) (uint32, error) {
	var height int64
	err := g.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(block_height), 0) FROM lockd_records WHERE confirmed`,
	).Scan(&height)
	if err != nil {
		return 0, lockderrors.WrapTransient(err, "postgres", "MaxProcessedHeight", "query height")
	}
	if height < 0 {
		height = 0
	}
	return uint32(height), nil
}

// SaveFailure implements persist.Gateway. Repeated failures for the same
// transaction bump the attempt counter instead of piling up rows.
func (g *Gateway) SaveFailure(ctx context.Context, txID string, procErr error, raw []byte) error {
	if txID == "" {
		return lockderrors.WrapInvalid(lockderrors.ErrInvalidRecord,
			"postgres", "SaveFailure", "validate tx id")
	}
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}

	_, err := g.pool.Exec(ctx, `
		INSERT INTO lockd_failures (tx_id, error, raw)
		VALUES ($1, $2, $3)
		ON CONFLICT (tx_id) DO UPDATE SET
			error = EXCLUDED.error,
			attempts = lockd_failures.attempts + 1,
			last_seen = NOW()`,
		txID, msg, raw,
	)
	if err != nil {
		return lockderrors.WrapTransient(err, "postgres", "SaveFailure", "record failure")
	}
	return nil
}

// Close implements persist.Gateway
func (g *Gateway) Close() {
	g.pool.Close()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
