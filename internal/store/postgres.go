package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hwalton/keap-console/pkg/keap"
)

const tokenSlotsTable = "token_slots"

// Querier is the subset of pgx used by PostgresStore. *pgxpool.Pool and
// pgxmock pools both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps the token pair in one row of token_slots.
type PostgresStore struct {
	db   Querier
	slot string
	psql sq.StatementBuilderType
}

// NewPostgresStore stores the pair under slot.
func NewPostgresStore(db Querier, slot string) *PostgresStore {
	return &PostgresStore{
		db:   db,
		slot: slot,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (s *PostgresStore) Read(ctx context.Context) (keap.TokenPair, error) {
	query, args, err := s.psql.
		Select("payload").
		From(tokenSlotsTable).
		Where(sq.Eq{"name": s.slot}).
		ToSql()
	if err != nil {
		return keap.TokenPair{}, fmt.Errorf("store: build select: %w", err)
	}

	var payload []byte
	err = s.db.QueryRow(ctx, query, args...).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return keap.TokenPair{}, nil
	}
	if err != nil {
		return keap.TokenPair{}, fmt.Errorf("store: select token slot: %w", err)
	}

	var pair keap.TokenPair
	if err := json.Unmarshal(payload, &pair); err != nil {
		return keap.TokenPair{}, fmt.Errorf("store: decode token slot: %w", err)
	}
	return pair, nil
}

// Write upserts the slot row.
func (s *PostgresStore) Write(ctx context.Context, pair keap.TokenPair) error {
	payload, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("store: encode tokens: %w", err)
	}
	query, args, err := s.psql.
		Insert(tokenSlotsTable).
		Columns("name", "payload", "updated_at").
		Values(s.slot, payload, sq.Expr("now()")).
		Suffix("ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()").
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build upsert: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("store: upsert token slot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	query, args, err := s.psql.
		Delete(tokenSlotsTable).
		Where(sq.Eq{"name": s.slot}).
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build delete: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("store: delete token slot: %w", err)
	}
	return nil
}
