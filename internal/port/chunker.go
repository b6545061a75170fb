package port

import "docrag/internal/domain"

type Chunker interface {
	Split(text string) []string

	Chunk(doc domain.Document, content string) []domain.Chunk
}
