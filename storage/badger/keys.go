package badger

import (
	"encoding/binary"

	"github.com/poiesic/graphhelper/core"
)

const (
	chunkPrefix       = "chunk:"
	chunkSourcePrefix = "chunksrc:"
	checkpointPrefix  = "ckpt:"
)

func makeChunkKey(id core.ID) []byte {
	buf := make([]byte, len(chunkPrefix)+8)
	offset := copy(buf, chunkPrefix)
	// BigEndian keeps iteration in ID order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeSourcePrefix returns the prefix under which every chunk ID of source
// is indexed. The NUL separator keeps one source from prefixing another.
func makeSourcePrefix(source string) []byte {
	buf := make([]byte, 0, len(chunkSourcePrefix)+len(source)+1)
	buf = append(buf, chunkSourcePrefix...)
	buf = append(buf, source...)
	return append(buf, 0)
}

func makeChunkSourceKey(source string, id core.ID) []byte {
	prefix := makeSourcePrefix(source)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

func idFromSourceKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

func makeCheckpointKey(source string) []byte {
	return []byte(checkpointPrefix + source)
}
