package idgen

import (
	"context"

	"github.com/guileen/finledger/types"
)

// IDGeneratorInterface hands out identifiers for stored objects
type IDGeneratorInterface interface {
	// NextRecordID generates a new, time ordered record ID
	NextRecordID(ctx context.Context, rt types.RecordType) (int64, error)

	// NewUserID generates a new opaque user ID
	NewUserID() string
}
