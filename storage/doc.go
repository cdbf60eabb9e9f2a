// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for the
// documentation index.
//
// This package defines repository interfaces that decouple the index from
// the retrieval and ingestion code, plus the binary codec for stored records.
//
// # Architecture
//
//   - ChunkRepository: documentation chunks, their embeddings, and
//     cosine-similarity search over them
//   - CheckpointRepository: per-source records of what has been indexed,
//     used to skip unchanged sources on re-index
//
// The badger sub-package implements both on one BadgerDB database.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/index", false, badger.WithReadOnly())
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//	chunks := badger.NewChunkRepository(backend)
//
// Use in tests with in-memory storage:
//
//	chunks, checkpoints, backend, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context. Long scans stop when the
// context ends.
package storage
