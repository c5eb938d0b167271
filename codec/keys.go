// Package codec encodes store keys so that byte order matches logical order,
// and encodes records against their schema.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/guileen/finledger/types"
)

// KeyType prefixes every key with the kind of object it addresses.
type KeyType byte

const (
	KeyTypeRecord KeyType = 'r'
	KeyTypeUser   KeyType = 'u'
)

const separator byte = 0x00

// RecordKey addresses one record: type, owner, then the memcomparable row id,
// so a prefix scan over (type, owner) yields ids in ascending order.
func RecordKey(rt types.RecordType, owner string, id int64) ([]byte, error) {
	buf, err := recordPrefix(rt, owner)
	if err != nil {
		return nil, err
	}
	writeMemComparableInt64(buf, id)
	return buf.Bytes(), nil
}

// RecordPrefix is the common prefix of all records of one type and owner.
func RecordPrefix(rt types.RecordType, owner string) ([]byte, error) {
	buf, err := recordPrefix(rt, owner)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func recordPrefix(rt types.RecordType, owner string) (*bytes.Buffer, error) {
	if err := checkComponent(string(rt)); err != nil {
		return nil, fmt.Errorf("record type: %w", err)
	}
	if err := checkComponent(owner); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	buf := &bytes.Buffer{}
	buf.WriteByte(byte(KeyTypeRecord))
	buf.WriteString(string(rt))
	buf.WriteByte(separator)
	buf.WriteString(owner)
	buf.WriteByte(separator)
	return buf, nil
}

// DecodeRecordKey splits a record key back into its parts.
func DecodeRecordKey(key []byte) (types.RecordType, string, int64, error) {
	if len(key) < 1+8 || key[0] != byte(KeyTypeRecord) {
		return "", "", 0, fmt.Errorf("not a record key")
	}
	parts := bytes.SplitN(key[1:len(key)-8], []byte{separator}, 3)
	if len(parts) != 3 || len(parts[2]) != 0 {
		return "", "", 0, fmt.Errorf("malformed record key")
	}
	id, _ := readMemComparableInt64(key[len(key)-8:])
	return types.RecordType(parts[0]), string(parts[1]), id, nil
}

// UserKey addresses a user by normalized e-mail.
func UserKey(email string) ([]byte, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("empty e-mail")
	}
	if err := checkComponent(email); err != nil {
		return nil, fmt.Errorf("e-mail: %w", err)
	}
	key := make([]byte, 0, 1+len(email))
	key = append(key, byte(KeyTypeUser))
	return append(key, email...), nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PrefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil when no such key exists.
func PrefixUpperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func checkComponent(s string) error {
	if s == "" {
		return fmt.Errorf("must not be empty")
	}
	if strings.IndexByte(s, separator) >= 0 {
		return fmt.Errorf("must not contain NUL")
	}
	return nil
}

func writeMemComparableInt64(buf *bytes.Buffer, v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v)^0x8000000000000000)
	buf.Write(tmp[:])
}

func readMemComparableInt64(data []byte) (int64, int) {
	if len(data) < 8 {
		return 0, 0
	}
	return int64(binary.BigEndian.Uint64(data[:8]) ^ 0x8000000000000000), 8
}
