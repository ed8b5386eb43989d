package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

// IndexRepository persists the embedded corpus so a restarted api can
// rebuild its in-memory snapshot without calling the embedding service
// again. Rebuilds replace the corpus wholesale inside one transaction.
type IndexRepository struct {
	db *sql.DB
}

func NewIndexRepository(db *sql.DB) *IndexRepository {
	return &IndexRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *IndexRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS corpus_documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	ingested_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS corpus_chunks (
	document_id TEXT NOT NULL REFERENCES corpus_documents(id) ON DELETE CASCADE,
	chunk_index INT NOT NULL,
	ordinal INT NOT NULL,
	text TEXT NOT NULL,
	start_offset INT NOT NULL,
	end_offset INT NOT NULL,
	embedding JSONB NOT NULL,
	PRIMARY KEY (document_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_corpus_chunks_ordinal ON corpus_chunks(ordinal);

CREATE TABLE IF NOT EXISTS corpus_images (
	document_id TEXT NOT NULL REFERENCES corpus_documents(id) ON DELETE CASCADE,
	position INT NOT NULL,
	page INT NOT NULL,
	format TEXT NOT NULL,
	data BYTEA NOT NULL,
	PRIMARY KEY (document_id, position)
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *IndexRepository) ReplaceCorpus(ctx context.Context, docs []domain.Document, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin corpus tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_documents`); err != nil {
		return fmt.Errorf("clear corpus: %w", err)
	}

	for _, doc := range docs {
		_, err := tx.ExecContext(ctx, `
INSERT INTO corpus_documents (id, filename, ingested_at)
VALUES ($1,$2,$3)
`, doc.ID, doc.Filename, doc.IngestedAt)
		if err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}

		for _, image := range doc.Images {
			_, err := tx.ExecContext(ctx, `
INSERT INTO corpus_images (document_id, position, page, format, data)
VALUES ($1,$2,$3,$4,$5)
`, doc.ID, image.Position, image.Page, image.Format, image.Data)
			if err != nil {
				return fmt.Errorf("insert image %s/%d: %w", doc.ID, image.Position, err)
			}
		}
	}

	for ordinal, chunk := range chunks {
		embedding, err := json.Marshal(vectors[ordinal])
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO corpus_chunks (document_id, chunk_index, ordinal, text, start_offset, end_offset, embedding)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, chunk.DocumentID, chunk.Index, ordinal, chunk.Text, chunk.StartOffset, chunk.EndOffset, embedding)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit corpus tx: %w", err)
	}
	return nil
}

// LoadCorpus returns chunks in their original insertion order so the
// restored snapshot ranks ties exactly as the rebuild that produced it.
func (r *IndexRepository) LoadCorpus(ctx context.Context) ([]domain.Document, []domain.Chunk, [][]float32, error) {
	docRows, err := r.db.QueryContext(ctx, `
SELECT id, filename, ingested_at
FROM corpus_documents
ORDER BY id
`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query documents: %w", err)
	}
	defer docRows.Close()

	var docs []domain.Document
	filenames := make(map[string]string)
	for docRows.Next() {
		var doc domain.Document
		if err := docRows.Scan(&doc.ID, &doc.Filename, &doc.IngestedAt); err != nil {
			return nil, nil, nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
		filenames[doc.ID] = doc.Filename
	}
	if err := docRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate documents: %w", err)
	}

	if err := r.loadImages(ctx, docs); err != nil {
		return nil, nil, nil, err
	}

	chunkRows, err := r.db.QueryContext(ctx, `
SELECT document_id, chunk_index, text, start_offset, end_offset, embedding
FROM corpus_chunks
ORDER BY ordinal
`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query chunks: %w", err)
	}
	defer chunkRows.Close()

	var (
		chunks  []domain.Chunk
		vectors [][]float32
	)
	for chunkRows.Next() {
		var chunk domain.Chunk
		var embeddingRaw []byte
		if err := chunkRows.Scan(&chunk.DocumentID, &chunk.Index, &chunk.Text, &chunk.StartOffset, &chunk.EndOffset, &embeddingRaw); err != nil {
			return nil, nil, nil, fmt.Errorf("scan chunk: %w", err)
		}

		var vector []float32
		if err := json.Unmarshal(embeddingRaw, &vector); err != nil {
			return nil, nil, nil, fmt.Errorf("unmarshal embedding for %s: %w", chunk.Key(), err)
		}

		chunk.Filename = filenames[chunk.DocumentID]
		chunks = append(chunks, chunk)
		vectors = append(vectors, vector)
	}
	if err := chunkRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate chunks: %w", err)
	}

	return docs, chunks, vectors, nil
}

// loadImages reattaches persisted images to their documents, in the
// extraction order they were ingested with.
func (r *IndexRepository) loadImages(ctx context.Context, docs []domain.Document) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT document_id, position, page, format, data
FROM corpus_images
ORDER BY document_id, position
`)
	if err != nil {
		return fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	byDoc := make(map[string][]domain.DocumentImage)
	for rows.Next() {
		var image domain.DocumentImage
		if err := rows.Scan(&image.DocumentID, &image.Position, &image.Page, &image.Format, &image.Data); err != nil {
			return fmt.Errorf("scan image: %w", err)
		}
		byDoc[image.DocumentID] = append(byDoc[image.DocumentID], image)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate images: %w", err)
	}

	for i := range docs {
		docs[i].Images = byDoc[docs[i].ID]
	}
	return nil
}
