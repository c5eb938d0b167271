// Package store persists finance records and users. KVStore runs on the
// embedded Pebble engine; PGStore runs on PostgreSQL.
package store

import (
	"context"
	"time"

	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/types"
)

// User is a registered account. Email is the login name and the owner value
// stamped on every record the user creates.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"password_hash"`
	Verified         bool      `json:"verified"`
	VerificationCode string    `json:"verification_code,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RecordStore is the record source: owner scoped, append only.
type RecordStore interface {
	// Insert validates input against the record type's schema, assigns the
	// system columns and persists the result.
	Insert(ctx context.Context, rt types.RecordType, owner string, input map[string]any) (types.Record, error)
	// List returns one owner's records of one type in insertion order.
	List(ctx context.Context, rt types.RecordType, owner string) ([]types.Record, error)
}

// UserStore persists user accounts keyed by e-mail.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
}

// Store is a complete backend.
type Store interface {
	RecordStore
	UserStore
	Close() error
}

// prepareRecord coerces input and stamps the system columns.
func prepareRecord(op string, rt types.RecordType, owner string, input map[string]any, id int64, now time.Time) (types.Record, types.Schema, error) {
	schema, ok := types.SchemaFor(rt)
	if !ok {
		return nil, types.Schema{}, apperrors.NewValidationErrorf(op, "unknown record type %q", rt)
	}
	if owner == "" {
		return nil, types.Schema{}, apperrors.NewUnauthorizedError(op, "missing record owner")
	}

	rec, err := schema.Coerce(input)
	if err != nil {
		return nil, types.Schema{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}

	rec[types.ColumnID] = id
	rec[types.ColumnOwner] = owner
	rec[types.ColumnCreatedAt] = now.UTC().Truncate(time.Millisecond)
	return rec, schema, nil
}

func schemaFor(op string, rt types.RecordType) (types.Schema, error) {
	schema, ok := types.SchemaFor(rt)
	if !ok {
		return types.Schema{}, apperrors.NewValidationErrorf(op, "unknown record type %q", rt)
	}
	return schema, nil
}
