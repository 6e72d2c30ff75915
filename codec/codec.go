// Package codec converts keys and values to bytes for byte-oriented backends
// such as backend/bigcache. The in-process backends never use a codec.
package codec

// Codec encodes/decodes values V to []byte for storage.
// Decode(Encode(v)) must yield a value equal to v; key codecs must also be
// injective, since distinct keys that encode alike would share one entry.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
