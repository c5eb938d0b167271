package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/guileen/finledger/codec"
	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/idgen"
	"github.com/guileen/finledger/logger"
	"github.com/guileen/finledger/storage"
	"github.com/guileen/finledger/types"
)

// KVStore keeps records and users in a storage.KV. Record keys sort by
// (type, owner, id), so a prefix scan returns one owner's records in the
// order they were inserted.
type KVStore struct {
	kv  storage.KV
	ids idgen.IDGeneratorInterface
	now func() time.Time

	// userMu serializes the read-check-write of user creation.
	userMu sync.Mutex
}

var _ Store = (*KVStore)(nil)

func NewKVStore(kv storage.KV, ids idgen.IDGeneratorInterface) *KVStore {
	return &KVStore{kv: kv, ids: ids, now: time.Now}
}

func (s *KVStore) Insert(ctx context.Context, rt types.RecordType, owner string, input map[string]any) (types.Record, error) {
	const op = "store.Insert"

	id, err := s.ids.NextRecordID(ctx, rt)
	if err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	rec, _, err := prepareRecord(op, rt, owner, input, id, s.now())
	if err != nil {
		return nil, err
	}

	key, err := codec.RecordKey(rt, owner, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}
	data, err := codec.EncodeRecord(rec)
	if err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	if err := s.kv.SetWithOptions(ctx, key, data, storage.SyncWriteOptions); err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}

	logger.DebugContext(ctx, "record inserted",
		logger.Component("store"),
		logger.String("record_type", string(rt)),
		logger.Any("id", id),
	)
	return rec, nil
}

func (s *KVStore) List(ctx context.Context, rt types.RecordType, owner string) ([]types.Record, error) {
	const op = "store.List"

	schema, err := schemaFor(op, rt)
	if err != nil {
		return nil, err
	}
	prefix, err := codec.RecordPrefix(rt, owner)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}

	snap, err := s.kv.NewSnapshot()
	if err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	defer snap.Close()

	iter, err := snap.NewIterator(&storage.IteratorOptions{
		LowerBound: prefix,
		UpperBound: codec.PrefixUpperBound(prefix),
	})
	if err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	defer iter.Close()

	records := make([]types.Record, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, _, id, err := codec.DecodeRecordKey(iter.Key())
		if err != nil {
			return nil, apperrors.NewStorageError(op, err)
		}
		rec, err := codec.DecodeRecord(iter.Value(), schema)
		if err != nil {
			return nil, apperrors.NewStorageError(op, err)
		}
		// The key is authoritative for identity.
		rec[types.ColumnID] = id
		rec[types.ColumnOwner] = owner
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	return records, nil
}

func (s *KVStore) CreateUser(ctx context.Context, u *User) error {
	const op = "store.CreateUser"

	key, err := codec.UserKey(u.Email)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}

	s.userMu.Lock()
	defer s.userMu.Unlock()

	if _, err := s.kv.Get(ctx, key); err == nil {
		return apperrors.NewConflictError(op, "user already exists")
	} else if !storage.IsNotFound(err) {
		return apperrors.NewStorageError(op, err)
	}

	now := s.now().UTC()
	u.Email = codec.NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now
	return s.putUser(ctx, op, key, u)
}

func (s *KVStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	const op = "store.UserByEmail"

	key, err := codec.UserKey(email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError(op, "user not found")
		}
		return nil, apperrors.NewStorageError(op, err)
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	return &u, nil
}

func (s *KVStore) UpdateUser(ctx context.Context, u *User) error {
	const op = "store.UpdateUser"

	key, err := codec.UserKey(u.Email)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}

	s.userMu.Lock()
	defer s.userMu.Unlock()

	if _, err := s.kv.Get(ctx, key); err != nil {
		if storage.IsNotFound(err) {
			return apperrors.NewNotFoundError(op, "user not found")
		}
		return apperrors.NewStorageError(op, err)
	}

	u.UpdatedAt = s.now().UTC()
	return s.putUser(ctx, op, key, u)
}

func (s *KVStore) putUser(ctx context.Context, op string, key []byte, u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return apperrors.NewStorageError(op, err)
	}
	if err := s.kv.SetWithOptions(ctx, key, data, storage.SyncWriteOptions); err != nil {
		return apperrors.NewStorageError(op, err)
	}
	return nil
}

func (s *KVStore) Close() error {
	return s.kv.Close()
}
