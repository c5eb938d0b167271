package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guileen/finledger/codec"
	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/idgen"
	"github.com/guileen/finledger/logger"
	"github.com/guileen/finledger/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PGStore keeps records and users in PostgreSQL, one table per record type.
// Numbers travel as text and are cast server side, so exact decimal values
// round-trip without depending on client numeric codecs.
type PGStore struct {
	pool *pgxpool.Pool
	ids  idgen.IDGeneratorInterface
	now  func() time.Time
}

var _ Store = (*PGStore)(nil)

// NewPGStore connects to dsn and creates any missing tables.
func NewPGStore(ctx context.Context, dsn string, ids idgen.IDGeneratorInterface) (*PGStore, error) {
	const op = "store.NewPGStore"

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewStorageError(op, err)
	}

	s := &PGStore{pool: pool, ids: ids, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("postgres store ready", logger.Component("store"))
	return s, nil
}

// Migrate creates the users table and one table per record type.
func (s *PGStore) Migrate(ctx context.Context) error {
	const op = "store.Migrate"

	stmts := []string{`CREATE TABLE IF NOT EXISTS users (
	id text PRIMARY KEY,
	email text NOT NULL UNIQUE,
	password_hash text NOT NULL,
	verified boolean NOT NULL DEFAULT false,
	verification_code text,
	created_at timestamptz NOT NULL,
	updated_at timestamptz NOT NULL
)`}
	for _, rt := range types.RecordTypes {
		schema, _ := types.SchemaFor(rt)
		stmts = append(stmts, createTableSQL(schema)...)
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return apperrors.NewStorageError(op, err)
		}
	}
	return nil
}

func tableName(rt types.RecordType) string {
	return string(rt) + "_records"
}

func createTableSQL(schema types.Schema) []string {
	table := pgx.Identifier{tableName(schema.Type)}.Sanitize()

	defs := []string{
		"id bigint PRIMARY KEY",
		pgx.Identifier{types.ColumnOwner}.Sanitize() + " text NOT NULL",
	}
	for _, col := range schema.Columns {
		def := pgx.Identifier{col.Name}.Sanitize() + " " + sqlType(col)
		if !col.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, pgx.Identifier{types.ColumnCreatedAt}.Sanitize()+" timestamptz NOT NULL")

	index := pgx.Identifier{tableName(schema.Type) + "_owner_idx"}.Sanitize()
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(defs, ",\n\t")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s, id)", index, table, pgx.Identifier{types.ColumnOwner}.Sanitize()),
	}
}

func sqlType(col types.ColumnDefinition) string {
	switch col.Type {
	case types.ColumnTypeNumber:
		return fmt.Sprintf("numeric(30,%d)", col.Scale)
	case types.ColumnTypeBoolean:
		return "boolean"
	case types.ColumnTypeDate:
		return "timestamptz"
	default:
		return "text"
	}
}

func (s *PGStore) Insert(ctx context.Context, rt types.RecordType, owner string, input map[string]any) (types.Record, error) {
	const op = "store.Insert"

	id, err := s.ids.NextRecordID(ctx, rt)
	if err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	rec, schema, err := prepareRecord(op, rt, owner, input, id, s.now())
	if err != nil {
		return nil, err
	}

	cols := schema.AllColumns()
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		names[i] = pgx.Identifier{col.Name}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
		v := rec[col.Name]
		if col.Type == types.ColumnTypeNumber && col.Name != types.ColumnID && v != nil {
			params[i] += "::text::numeric"
			v = types.FormatValue(v)
		}
		args[i] = v
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{tableName(rt)}.Sanitize(), strings.Join(names, ", "), strings.Join(params, ", "))
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	return rec, nil
}

func (s *PGStore) List(ctx context.Context, rt types.RecordType, owner string) ([]types.Record, error) {
	const op = "store.List"

	schema, err := schemaFor(op, rt)
	if err != nil {
		return nil, err
	}

	cols := schema.AllColumns()
	selects := make([]string, len(cols))
	for i, col := range cols {
		selects[i] = pgx.Identifier{col.Name}.Sanitize()
		if col.Type == types.ColumnTypeNumber && col.Name != types.ColumnID {
			selects[i] += "::text"
		}
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY id",
		strings.Join(selects, ", "),
		pgx.Identifier{tableName(rt)}.Sanitize(),
		pgx.Identifier{types.ColumnOwner}.Sanitize())

	rows, err := s.pool.Query(ctx, sql, owner)
	if err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	defer rows.Close()

	records := make([]types.Record, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, apperrors.NewStorageError(op, err)
		}
		rec := make(types.Record, len(cols))
		for i, col := range cols {
			v := values[i]
			switch x := v.(type) {
			case string:
				if col.Type == types.ColumnTypeNumber {
					v = json.Number(x)
				}
			case time.Time:
				v = x.UTC()
			}
			rec[col.Name] = v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	return records, nil
}

func (s *PGStore) CreateUser(ctx context.Context, u *User) error {
	const op = "store.CreateUser"

	now := s.now().UTC()
	u.Email = codec.NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, verified, verification_code, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`,
		u.ID, u.Email, u.PasswordHash, u.Verified, u.VerificationCode, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.NewConflictError(op, "user already exists")
		}
		return apperrors.NewStorageError(op, err)
	}
	return nil
}

func (s *PGStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	const op = "store.UserByEmail"

	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, verified, coalesce(verification_code, ''), created_at, updated_at
		 FROM users WHERE email = $1`, codec.NormalizeEmail(email)).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Verified, &u.VerificationCode, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(op, "user not found")
		}
		return nil, apperrors.NewStorageError(op, err)
	}
	return &u, nil
}

func (s *PGStore) UpdateUser(ctx context.Context, u *User) error {
	const op = "store.UpdateUser"

	u.UpdatedAt = s.now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, verified = $3, verification_code = NULLIF($4, ''), updated_at = $5
		 WHERE email = $1`,
		codec.NormalizeEmail(u.Email), u.PasswordHash, u.Verified, u.VerificationCode, u.UpdatedAt)
	if err != nil {
		return apperrors.NewStorageError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(op, "user not found")
	}
	return nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
