package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"docrag/internal/domain"
)

var ErrNotFound = errors.New("not found")

var (
	bucketDocs      = []byte("docs")
	bucketChunks    = []byte("chunks")
	bucketBlobs     = []byte("blobs")
	bucketDocChunks = []byte("doc_chunks")
	bucketStats     = []byte("stats")
	keyStats        = []byte("corpus_stats")

	allBuckets = [][]byte{bucketDocs, bucketChunks, bucketBlobs, bucketDocChunks, bucketStats}
)

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

type docMeta struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Format  string `json:"format"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
}

type chunkMeta struct {
	DocID   string `json:"doc_id"`
	DocName string `json:"doc_name"`
	Index   int    `json:"index"`
	IsError bool   `json:"is_error,omitempty"`
}

func toDocMeta(doc domain.Document) docMeta {
	return docMeta{
		Name:    doc.Name,
		Path:    doc.Path,
		Format:  string(doc.Format),
		Size:    doc.Size,
		ModTime: doc.ModTime.Unix(),
	}
}

func (m docMeta) document(id string) domain.Document {
	return domain.Document{
		ID:      id,
		Name:    m.Name,
		Path:    m.Path,
		Format:  domain.Format(m.Format),
		Size:    m.Size,
		ModTime: time.Unix(m.ModTime, 0),
	}
}

// PutDocument replaces a document and its whole chunk sequence in one
// transaction.
func (s *BoltStore) PutDocument(doc domain.Document, chunks []domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := deleteChunks(tx, doc.ID); err != nil {
			return err
		}

		data, err := json.Marshal(toDocMeta(doc))
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocs).Put([]byte(doc.ID), data); err != nil {
			return err
		}

		chunksBucket := tx.Bucket(bucketChunks)
		blobsBucket := tx.Bucket(bucketBlobs)
		chunkIDs := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			meta := chunkMeta{
				DocID:   doc.ID,
				DocName: chunk.DocName,
				Index:   chunk.Index,
				IsError: chunk.IsError,
			}
			data, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			if err := chunksBucket.Put([]byte(chunk.ID), data); err != nil {
				return err
			}
			if err := blobsBucket.Put([]byte(chunk.ID), []byte(chunk.Text)); err != nil {
				return err
			}
			chunkIDs = append(chunkIDs, chunk.ID)
		}

		idsData, err := json.Marshal(chunkIDs)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocChunks).Put([]byte(doc.ID), idsData)
	})
}

func (s *BoltStore) GetDoc(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = meta.document(id)
		return nil
	})
	return doc, err
}

// ListDocs returns stored documents ordered by ID.
func (s *BoltStore) ListDocs() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs = append(docs, meta.document(string(k)))
			return nil
		})
	})
	return docs, err
}

// GetChunksByDoc returns a document's chunks in sequence order.
func (s *BoltStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocChunks).Get([]byte(docID))
		if data == nil {
			return nil
		}
		var chunkIDs []string
		if err := json.Unmarshal(data, &chunkIDs); err != nil {
			return err
		}
		chunkBucket := tx.Bucket(bucketChunks)
		blobBucket := tx.Bucket(bucketBlobs)
		for _, id := range chunkIDs {
			data := chunkBucket.Get([]byte(id))
			if data == nil {
				continue
			}
			var meta chunkMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				return fmt.Errorf("chunk %s: %w", id, err)
			}
			chunks = append(chunks, domain.Chunk{
				ID:      id,
				DocID:   meta.DocID,
				DocName: meta.DocName,
				Index:   meta.Index,
				IsError: meta.IsError,
				Text:    string(blobBucket.Get([]byte(id))),
			})
		}
		return nil
	})
	return chunks, err
}

func (s *BoltStore) DeleteDoc(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := deleteChunks(tx, id); err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Delete([]byte(id))
	})
}

func deleteChunks(tx *bbolt.Tx, docID string) error {
	docChunks := tx.Bucket(bucketDocChunks)
	data := docChunks.Get([]byte(docID))
	if data == nil {
		return nil
	}
	var chunkIDs []string
	if err := json.Unmarshal(data, &chunkIDs); err != nil {
		return err
	}
	chunkBucket := tx.Bucket(bucketChunks)
	blobBucket := tx.Bucket(bucketBlobs)
	for _, id := range chunkIDs {
		if err := chunkBucket.Delete([]byte(id)); err != nil {
			return err
		}
		if err := blobBucket.Delete([]byte(id)); err != nil {
			return err
		}
	}
	return docChunks.Delete([]byte(docID))
}

func (s *BoltStore) GetStats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

func (s *BoltStore) UpdateStats(stats domain.Stats) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStats).Put(keyStats, data)
	})
}

// ComputeStats recounts documents and chunks from the stored data.
func (s *BoltStore) ComputeStats() (domain.Stats, error) {
	var stats domain.Stats
	var totalLen int
	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.TotalDocs = tx.Bucket(bucketDocs).Stats().KeyN
		return tx.Bucket(bucketBlobs).ForEach(func(_, v []byte) error {
			stats.TotalChunks++
			totalLen += len(v)
			return nil
		})
	})
	if stats.TotalChunks > 0 {
		stats.AvgChunkLen = float64(totalLen) / float64(stats.TotalChunks)
	}
	return stats, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
