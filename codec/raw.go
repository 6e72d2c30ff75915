package codec

import (
	"fmt"
	"strconv"
)

// Bytes is an identity codec for []byte values and keys.
// Encode/Decode return the input unchanged.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String is a trivial codec for string values and keys. By convention this
// assumes UTF-8 and performs no validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }

// Int64 encodes integers as base-10 text. Mostly useful as a key codec:
// the output is injective and readable in backend dumps.
type Int64 struct{}

func (Int64) Encode(n int64) ([]byte, error) { return strconv.AppendInt(nil, n, 10), nil }
func (Int64) Decode(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("int64 codec: %w", err)
	}
	return n, nil
}
