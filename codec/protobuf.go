package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Protobuf encodes proto messages. Construct with NewProtobuf; the zero value
// has no message constructor and fails on Decode.
type Protobuf[T proto.Message] struct {
	new func() T // e.g. func() *mypb.User { return &mypb.User{} }
}

var errNoCtor = errors.New("protobuf codec: missing message constructor")

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.new == nil {
		var zero T
		return zero, errNoCtor
	}
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
