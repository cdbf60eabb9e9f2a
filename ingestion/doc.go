// Package ingestion builds the local documentation index.
//
// A Pipeline fetches each documentation source (an llms.txt URL or a local
// file), cleans the markdown, splits it into overlapping chunks, embeds the
// chunks in batches on a worker pool and stores them with their vectors.
// A per-source checkpoint keyed by content hash lets repeated runs skip
// sources whose content has not changed.
package ingestion
