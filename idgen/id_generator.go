package idgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guileen/finledger/types"
)

const (
	machineBits  = 10
	sequenceBits = 12
	maxMachineID = 1<<machineBits - 1
	sequenceMask = 1<<sequenceBits - 1
)

// Epoch is the zero point of record IDs.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// IDGenerator generates snowflake record IDs and UUID user IDs
type IDGenerator struct {
	rows *snowflakeIDGenerator
}

var _ IDGeneratorInterface = (*IDGenerator)(nil)

// NewIDGenerator creates a new IDGenerator for the given machine
func NewIDGenerator(machineID int64) (*IDGenerator, error) {
	rows, err := NewSnowflakeIDGenerator(machineID)
	if err != nil {
		return nil, err
	}
	return &IDGenerator{rows: rows}, nil
}

// NextRecordID generates a new record ID. IDs from one generator strictly
// increase, so they double as insertion order.
func (ig *IDGenerator) NextRecordID(ctx context.Context, rt types.RecordType) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return ig.rows.Next()
}

// NewUserID generates a random UUID
func (ig *IDGenerator) NewUserID() string {
	return uuid.NewString()
}

// snowflakeIDGenerator lays IDs out as 41 bits of milliseconds since Epoch,
// 10 bits of machine ID and 12 bits of sequence.
type snowflakeIDGenerator struct {
	mu        sync.Mutex
	epoch     int64
	machineID int64
	sequence  int64
	lastTime  int64
	now       func() time.Time
}

func NewSnowflakeIDGenerator(machineID int64) (*snowflakeIDGenerator, error) {
	if machineID < 0 || machineID > maxMachineID {
		return nil, fmt.Errorf("machine id must be between 0-%d, got %d", maxMachineID, machineID)
	}

	return &snowflakeIDGenerator{
		epoch:     Epoch.UnixMilli(),
		machineID: machineID,
		now:       time.Now,
	}, nil
}

func (g *snowflakeIDGenerator) Next() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UnixMilli()

	if now < g.lastTime {
		return 0, fmt.Errorf("clock moved backwards by %dms", g.lastTime-now)
	}

	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			for now <= g.lastTime {
				now = g.now().UnixMilli()
			}
		}
	} else {
		g.sequence = 0
	}

	g.lastTime = now

	id := ((now - g.epoch) << (machineBits + sequenceBits)) | (g.machineID << sequenceBits) | g.sequence
	return id, nil
}

// Timestamp recovers the creation time encoded in a record ID.
func Timestamp(id int64) time.Time {
	return time.UnixMilli(Epoch.UnixMilli() + id>>(machineBits+sequenceBits)).UTC()
}
