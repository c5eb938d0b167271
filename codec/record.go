package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/guileen/finledger/types"
)

// EncodeRecord serializes a record as a JSON object. Numbers keep their exact
// decimal text and dates are written as RFC 3339 in UTC.
func EncodeRecord(rec types.Record) ([]byte, error) {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		switch x := v.(type) {
		case time.Time:
			out[k] = x.UTC().Format(time.RFC3339Nano)
		default:
			out[k] = x
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

// DecodeRecord restores a record using the schema's column types: dates
// become time.Time, numbers json.Number, and the id column int64.
func DecodeRecord(data []byte, schema types.Schema) (types.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	colTypes := schema.ColumnTypes()
	rec := make(types.Record, len(raw))
	for k, v := range raw {
		if v == nil {
			rec[k] = nil
			continue
		}
		switch {
		case k == types.ColumnID:
			id, err := toInt64(v)
			if err != nil {
				return nil, fmt.Errorf("decode record id: %w", err)
			}
			rec[k] = id
		case colTypes[k] == types.ColumnTypeDate:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("decode record: column %s is not a date string", k)
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("decode record: column %s: %w", k, err)
			}
			rec[k] = t
		default:
			rec[k] = v
		}
	}
	return rec, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case int64:
		return n, nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("unexpected id type %T", v)
}
