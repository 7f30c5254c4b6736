// Package sql implements persistence.Store over PostgreSQL, for
// deployments that need agent state to survive a process restart.
// Modeled on bun_store.go's bun.DB/pgdriver.NewConnector wiring: each
// AgentSnapshot is gob-encoded into a single bytea column alongside
// plain columns (id, schema_version, status) so ListAgents can filter
// without decoding every row.
package sql

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"

	"github.com/active-inference/aifcore/aierrors"
	"github.com/active-inference/aifcore/persistence"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var _ persistence.Store = (*Store)(nil)

// Store is a Postgres-backed persistence.Store.
type Store struct {
	db *bun.DB
}

// agentRow is the bun model backing the agents table.
type agentRow struct {
	bun.BaseModel `bun:"table:agents,alias:a"`

	ID            string `bun:"id,pk"`
	SchemaVersion int    `bun:"schema_version"`
	Status        string `bun:"status"`
	Snapshot      []byte `bun:"snapshot"`
}

// Open connects to dsn and returns a Store.
func Open(dsn string) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &Store{db: bun.NewDB(sqldb, pgdialect.New())}
}

// InitSchema creates the agents table if it does not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*agentRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func encode(snap persistence.AgentSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(raw []byte) (persistence.AgentSnapshot, error) {
	var snap persistence.AgentSnapshot
	err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap)
	return snap, err
}

// SaveAgent implements persistence.Store.
func (s *Store) SaveAgent(ctx context.Context, snap persistence.AgentSnapshot) error {
	raw, err := encode(snap)
	if err != nil {
		return aierrors.New(aierrors.ExternalFailure, "sql.Store.SaveAgent", err)
	}
	row := &agentRow{
		ID:            snap.ID,
		SchemaVersion: int(snap.SchemaVersion),
		Status:        snap.Status,
		Snapshot:      raw,
	}
	_, err = s.db.NewInsert().Model(row).On("CONFLICT (id) DO UPDATE").Exec(ctx)
	if err != nil {
		return aierrors.New(aierrors.ExternalFailure, "sql.Store.SaveAgent", err)
	}
	return nil
}

// LoadAgent implements persistence.Store.
func (s *Store) LoadAgent(ctx context.Context, id string) (persistence.AgentSnapshot, error) {
	row := new(agentRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return persistence.AgentSnapshot{}, aierrors.New(aierrors.ExternalFailure, "sql.Store.LoadAgent", err)
	}
	snap, err := decode(row.Snapshot)
	if err != nil {
		return persistence.AgentSnapshot{}, aierrors.New(aierrors.ExternalFailure, "sql.Store.LoadAgent", err)
	}
	if snap.SchemaVersion != persistence.CurrentSchemaVersion {
		return persistence.AgentSnapshot{}, aierrors.New(aierrors.ExternalFailure, "sql.Store.LoadAgent", nil)
	}
	return snap, nil
}

// ListAgents implements persistence.Store.
func (s *Store) ListAgents(ctx context.Context, filter persistence.Filter) ([]string, error) {
	query := s.db.NewSelect().Model((*agentRow)(nil)).Column("id")
	if filter.StatusEquals != "" {
		query = query.Where("status = ?", filter.StatusEquals)
	}
	var rows []agentRow
	if err := query.Scan(ctx, &rows); err != nil {
		return nil, aierrors.New(aierrors.ExternalFailure, "sql.Store.ListAgents", err)
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// DeleteAgent implements persistence.Store.
func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*agentRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return aierrors.New(aierrors.ExternalFailure, "sql.Store.DeleteAgent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return aierrors.New(aierrors.ExternalFailure, "sql.Store.DeleteAgent", err)
	}
	if n == 0 {
		return aierrors.New(aierrors.ExternalFailure, "sql.Store.DeleteAgent", nil)
	}
	return nil
}
