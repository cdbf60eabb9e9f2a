package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for indexed chunks.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Role tags a conversation turn with its speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is a single entry of prior conversation history.
type Turn struct {
	Role    Role
	Content string
}

// Query is the immutable input of one request: the question plus the
// prior-turn history in chronological order.
type Query struct {
	Text    string
	History []Turn
}

// NewQuery creates a Query, copying the history so later changes by the
// caller do not leak into an in-flight request.
func NewQuery(text string, history []Turn) Query {
	var h []Turn
	if len(history) > 0 {
		h = make([]Turn, len(history))
		copy(h, history)
	}
	return Query{Text: strings.TrimSpace(text), History: h}
}

// QueryType is the intent category assigned by the classifier.
type QueryType string

const (
	QueryTypeGraphFramework QueryType = "graph_framework"
	QueryTypeChainFramework QueryType = "chain_framework"
	QueryTypeCodeExample    QueryType = "code_example"
	QueryTypeGeneral        QueryType = "general"
)

// QueryTypes lists every QueryType in enumeration order.
// Classification matching walks this slice front to back.
var QueryTypes = []QueryType{
	QueryTypeGraphFramework,
	QueryTypeChainFramework,
	QueryTypeCodeExample,
	QueryTypeGeneral,
}

// Mode selects which branch of the routing graph runs.
type Mode string

const (
	// ModeOffline answers from the local documentation index only.
	ModeOffline Mode = "offline"
	// ModeOnline augments local retrieval with a live web search.
	ModeOnline Mode = "online"
)

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeOnline {
		return ModeOffline
	}
	return ModeOnline
}

// Provenance marks where a piece of evidence came from.
type Provenance string

const (
	ProvenanceLocalDoc Provenance = "local_doc"
	ProvenanceWeb      Provenance = "web"
)

// EvidenceChunk is one retrieved unit of grounding context.
type EvidenceChunk struct {
	ID         ID
	Text       string
	Source     string
	Score      float32 // higher = more relevant
	Provenance Provenance
}

// Chunk is a span of documentation text stored in the index together with
// its embedding.
type Chunk struct {
	Id         ID
	Source     string
	Index      int // position of the chunk within its source document
	Text       string
	Vector     []float32
	InsertedAt time.Time
}

// Checkpoint records that a documentation source has been indexed.
// ContentHash lets the index builder skip sources that did not change.
type Checkpoint struct {
	Source      string
	ContentHash ID
	ChunkCount  int
	UpdatedAt   time.Time
}

// ScoredChunk pairs a stored chunk with its similarity to a query vector.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}

// Result is what a request returns to its caller.
type Result struct {
	RequestID string
	Answer    string
	QueryType QueryType
	Mode      Mode
	Evidence  []EvidenceChunk
	Trace     Trace
}
