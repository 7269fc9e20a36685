package pgstore

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meterline/gatekit/paramstore"
)

// Store reads parameters from a Postgres table with (path, value) columns.
type Store struct {
	pg    *pgxpool.Pool
	table string
}

func NewStore(pg *pgxpool.Pool, table string) *Store {
	t := strings.TrimSpace(table)
	if t == "" {
		t = "parameters"
	}
	return &Store{pg: pg, table: t}
}

func (s *Store) GetParameter(ctx context.Context, path string) (string, error) {
	if s.pg == nil {
		return "", paramstore.ErrNotFound
	}
	var value string
	err := s.pg.QueryRow(ctx, `SELECT value FROM `+s.table+` WHERE path = $1`, path).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", paramstore.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
