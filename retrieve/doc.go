// Package retrieve implements the local-documentation step of the routing
// graph.
//
// A Retriever expands the question into several search texts, runs each
// against an EvidenceStore, deduplicates the hits, and keeps the best TopK
// above a relevance floor. Ties in score are broken by how relevant the
// source document is for the query type.
//
// VectorStore is the EvidenceStore used in production: it embeds the search
// text with an ai.Embedder and ranks chunks from a storage.ChunkRepository
// by cosine similarity.
package retrieve
