package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/graphhelper/core"
)

// Records are encoded with mus-go primitives, fields in declaration order.
// Times are stored as UTC Unix microseconds.

// MarshalID encodes an ID.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID decodes an ID.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

func timeSize(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func vectorSize(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Float32.Size(f)
	}
	return size
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > len(bs)-n {
		return nil, n, ErrTruncatedData
	}
	v := make([]float32, length)
	for i := range v {
		f, m, err := varint.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v[i] = f
	}
	return v, n, nil
}

func chunkSize(c *core.Chunk) int {
	return varint.Uint64.Size(uint64(c.Id)) +
		ord.String.Size(c.Source) +
		varint.Int.Size(c.Index) +
		ord.String.Size(c.Text) +
		vectorSize(c.Vector) +
		timeSize(c.InsertedAt)
}

// MarshalChunk encodes a chunk.
func MarshalChunk(c *core.Chunk) []byte {
	buf := make([]byte, chunkSize(c))
	n := varint.Uint64.Marshal(uint64(c.Id), buf)
	n += ord.String.Marshal(c.Source, buf[n:])
	n += varint.Int.Marshal(c.Index, buf[n:])
	n += ord.String.Marshal(c.Text, buf[n:])
	n += marshalVector(c.Vector, buf[n:])
	marshalTime(c.InsertedAt, buf[n:])
	return buf
}

// UnmarshalChunk decodes a chunk.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	var (
		c   core.Chunk
		n   int
		m   int
		err error
		id  uint64
	)
	wrap := func(err error) error {
		return fmt.Errorf("%w: chunk: %w", ErrSerializationFailed, err)
	}

	if id, m, err = varint.Uint64.Unmarshal(data); err != nil {
		return nil, wrap(err)
	}
	c.Id = core.ID(id)
	n += m
	if c.Source, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, wrap(err)
	}
	n += m
	if c.Index, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, wrap(err)
	}
	n += m
	if c.Text, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, wrap(err)
	}
	n += m
	if c.Vector, m, err = unmarshalVector(data[n:]); err != nil {
		return nil, wrap(err)
	}
	n += m
	if c.InsertedAt, _, err = unmarshalTime(data[n:]); err != nil {
		return nil, wrap(err)
	}
	return &c, nil
}

// MarshalCheckpoint encodes a checkpoint.
func MarshalCheckpoint(cp *core.Checkpoint) []byte {
	size := ord.String.Size(cp.Source) +
		varint.Uint64.Size(uint64(cp.ContentHash)) +
		varint.Int.Size(cp.ChunkCount) +
		timeSize(cp.UpdatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(cp.Source, buf)
	n += varint.Uint64.Marshal(uint64(cp.ContentHash), buf[n:])
	n += varint.Int.Marshal(cp.ChunkCount, buf[n:])
	marshalTime(cp.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalCheckpoint decodes a checkpoint.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	var (
		cp   core.Checkpoint
		n    int
		m    int
		err  error
		hash uint64
	)
	wrap := func(err error) error {
		return fmt.Errorf("%w: checkpoint: %w", ErrSerializationFailed, err)
	}

	if cp.Source, m, err = ord.String.Unmarshal(data); err != nil {
		return nil, wrap(err)
	}
	n += m
	if hash, m, err = varint.Uint64.Unmarshal(data[n:]); err != nil {
		return nil, wrap(err)
	}
	cp.ContentHash = core.ID(hash)
	n += m
	if cp.ChunkCount, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, wrap(err)
	}
	n += m
	if cp.UpdatedAt, _, err = unmarshalTime(data[n:]); err != nil {
		return nil, wrap(err)
	}
	return &cp, nil
}
