package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campusstay/discovery/internal/metrics"
)

// Postgres is an Adapter over a single kv_entries table. It carries no
// change signaling; the session cache's bounded-interval reconciliation
// covers cross-context convergence for this backend.
type Postgres struct {
	db      *sqlx.DB
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// PostgresSchema creates the backing table when absent.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgres wraps an established database handle as a persistence
// adapter.
func NewPostgres(db *sqlx.DB, logger *zap.Logger, m *metrics.Metrics) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{db: db, logger: logger, metrics: m}
}

// EnsureSchema applies the backing table definition.
func (p *Postgres) EnsureSchema() error {
	_, err := p.db.Exec(PostgresSchema)
	return err
}

// Get implements Adapter.
func (p *Postgres) Get(key string) (string, bool) {
	var value string
	err := p.db.Get(&value, `SELECT value FROM kv_entries WHERE key = $1`, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			p.logger.Warn("postgres store get failed", zap.String("key", key), zap.Error(err))
			p.metrics.RecordStoreOp("postgres", "get", false)
		}
		return "", false
	}
	p.metrics.RecordStoreOp("postgres", "get", true)
	return value, true
}

// Set implements Adapter.
func (p *Postgres) Set(key, value string) {
	_, err := p.db.Exec(
		`INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		p.logger.Warn("postgres store set failed", zap.String("key", key), zap.Error(err))
	}
	p.metrics.RecordStoreOp("postgres", "set", err == nil)
}

// Remove implements Adapter.
func (p *Postgres) Remove(key string) {
	_, err := p.db.Exec(`DELETE FROM kv_entries WHERE key = $1`, key)
	if err != nil {
		p.logger.Warn("postgres store remove failed", zap.String("key", key), zap.Error(err))
	}
	p.metrics.RecordStoreOp("postgres", "remove", err == nil)
}
