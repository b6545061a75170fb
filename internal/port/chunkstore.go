package port

import "docrag/internal/domain"

type ChunkStore interface {
	PutDocument(doc domain.Document, chunks []domain.Chunk) error

	GetDoc(id string) (domain.Document, error)

	ListDocs() ([]domain.Document, error)

	GetChunksByDoc(docID string) ([]domain.Chunk, error)

	DeleteDoc(id string) error

	GetStats() (domain.Stats, error)

	UpdateStats(stats domain.Stats) error

	Close() error
}
