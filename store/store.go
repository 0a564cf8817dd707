package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// CanonicalAmount is a money amount normalized at ingestion time.
type CanonicalAmount struct {
	Raw      string  `json:"raw"`
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Chunk is one retrievable passage of the corpus.
type Chunk struct {
	ID         int64             `json:"id"`
	ChunkID    string            `json:"chunk_id"`
	Source     string            `json:"source"`
	Page       int               `json:"page"`
	Text       string            `json:"text"`
	Language   string            `json:"language"`
	WordCount  int               `json:"word_count"`
	TrustScore float64           `json:"trust_score"`
	DocDate    string            `json:"doc_date,omitempty"`
	Canonicals []CanonicalAmount `json:"canonicals,omitempty"`
}

// QueryLog is one entry of the query audit trail.
type QueryLog struct {
	Query      string  `json:"query"`
	Intent     string  `json:"intent"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
	ElapsedMS  int64   `json:"elapsed_ms"`
}

// RetrievalResult holds a chunk with its retrieval score.
type RetrievalResult struct {
	RowID      int64             `json:"-"`
	ChunkID    string            `json:"chunk_id"`
	Source     string            `json:"source"`
	Page       int               `json:"page"`
	Text       string            `json:"text"`
	Language   string            `json:"language"`
	TrustScore float64           `json:"trust_score"`
	Canonicals []CanonicalAmount `json:"canonicals,omitempty"`
	Score      float64           `json:"score"`
}

// Store wraps the SQLite database holding the chunk corpus and both
// retrieval indexes.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens the SQLite database at dbPath, creating it and its schema
// (including the sqlite-vec and FTS5 virtual tables) when absent.
func New(dbPath string, embeddingDim int) (*Store, error) {
	// Parent directory may not exist on first run.
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// SQLite tolerates few writers; keep the pool small.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Open opens an existing chunk database without creating one. Returns an
// error when the file does not exist.
func Open(dbPath string, embeddingDim int) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("chunk database %s: %w", dbPath, err)
	}
	return New(dbPath, embeddingDim)
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw *sql.DB for callers that need direct SQL.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim reports the vector dimension the store was opened with.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Chunk operations ---

// InsertChunks inserts a batch of chunks in one transaction and returns
// their rowids. Re-ingesting an existing chunk_id replaces the row.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) ([]int64, error) {
	ids := make([]int64, len(chunks))

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (chunk_id, source, page, text, language, word_count, trust_score, doc_date, canonicals)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chunk_id) DO UPDATE SET
				source = excluded.source,
				page = excluded.page,
				text = excluded.text,
				language = excluded.language,
				word_count = excluded.word_count,
				trust_score = excluded.trust_score,
				doc_date = excluded.doc_date,
				canonicals = excluded.canonicals
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, c := range chunks {
			canonicals, err := json.Marshal(c.Canonicals)
			if err != nil {
				return err
			}

			res, err := stmt.ExecContext(ctx,
				c.ChunkID, c.Source, c.Page, c.Text, c.Language,
				c.WordCount, c.TrustScore, c.DocDate, string(canonicals))
			if err != nil {
				return err
			}
			ids[i], err = res.LastInsertId()
			if err != nil {
				return err
			}

			// On conflict-update the insert id is not the existing row.
			if ids[i] == 0 {
				row := tx.QueryRowContext(ctx, "SELECT id FROM chunks WHERE chunk_id = ?", c.ChunkID)
				if err := row.Scan(&ids[i]); err != nil {
					return err
				}
			}
		}
		return nil
	})

	return ids, err
}

// GetChunk retrieves a chunk by its stable chunk_id.
func (s *Store) GetChunk(ctx context.Context, chunkID string) (*Chunk, error) {
	c := &Chunk{}
	var docDate, canonicals sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, chunk_id, source, page, text, language, word_count, trust_score, doc_date, canonicals
		FROM chunks WHERE chunk_id = ?
	`, chunkID).Scan(&c.ID, &c.ChunkID, &c.Source, &c.Page, &c.Text,
		&c.Language, &c.WordCount, &c.TrustScore, &docDate, &canonicals)
	if err != nil {
		return nil, err
	}
	c.DocDate = docDate.String
	if err := decodeCanonicals(canonicals, chunkID, &c.Canonicals); err != nil {
		return nil, err
	}
	return c, nil
}

// AllChunks returns every chunk ordered by source then page. Used by the
// offline graph builder.
func (s *Store) AllChunks(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chunk_id, source, page, text, language, word_count, trust_score, doc_date, canonicals
		FROM chunks ORDER BY source, page
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var docDate, canonicals sql.NullString
		if err := rows.Scan(&c.ID, &c.ChunkID, &c.Source, &c.Page, &c.Text,
			&c.Language, &c.WordCount, &c.TrustScore, &docDate, &canonicals); err != nil {
			return nil, err
		}
		c.DocDate = docDate.String
		if err := decodeCanonicals(canonicals, c.ChunkID, &c.Canonicals); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// --- Embedding operations ---

// InsertEmbedding stores a vector embedding for a chunk rowid.
func (s *Store) InsertEmbedding(ctx context.Context, rowID int64, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)",
		rowID, serializeFloat32(embedding))
	return err
}

// VectorSearch runs a KNN query over vec_chunks and returns the k
// nearest chunks by cosine distance.
// When language is non-empty, only chunks in that language are returned;
// the KNN fetch is widened so the post-filter still yields up to k rows.
func (s *Store) VectorSearch(ctx context.Context, queryEmbedding []float32, k int, language string) ([]RetrievalResult, error) {
	fetchK := k
	if language != "" {
		fetchK = k * 4
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance,
			c.chunk_id, c.source, c.page, c.text, c.language, c.trust_score, c.canonicals
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), fetchK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var distance float64
		var canonicals sql.NullString
		if err := rows.Scan(&r.RowID, &distance,
			&r.ChunkID, &r.Source, &r.Page, &r.Text, &r.Language, &r.TrustScore, &canonicals); err != nil {
			return nil, err
		}
		if err := decodeCanonicals(canonicals, r.ChunkID, &r.Canonicals); err != nil {
			return nil, err
		}
		if language != "" && r.Language != language {
			continue
		}
		// cosine similarity = 1 - cosine distance
		r.Score = 1.0 - distance
		results = append(results, r)
		if len(results) >= k {
			break
		}
	}
	return results, rows.Err()
}

// FTSSearch runs the query against the FTS5 index, ranked by BM25.
func (s *Store) FTSSearch(ctx context.Context, query string, limit int) ([]RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.rowid, f.rank,
			c.chunk_id, c.source, c.page, c.text, c.language, c.trust_score, c.canonicals
		FROM chunks_fts f
		JOIN chunks c ON c.id = f.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var rank float64
		var canonicals sql.NullString
		if err := rows.Scan(&r.RowID, &rank,
			&r.ChunkID, &r.Source, &r.Page, &r.Text, &r.Language, &r.TrustScore, &canonicals); err != nil {
			return nil, err
		}
		if err := decodeCanonicals(canonicals, r.ChunkID, &r.Canonicals); err != nil {
			return nil, err
		}
		// FTS5 ranks are negative, smaller meaning better
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Query log ---

// LogQuery appends one entry to the query audit trail.
func (s *Store) LogQuery(ctx context.Context, q QueryLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_log (query, intent, source, confidence, elapsed_ms)
		VALUES (?, ?, ?, ?, ?)
	`, q.Query, q.Intent, q.Source, q.Confidence, q.ElapsedMS)
	return err
}

// --- Diagnostics ---

// Languages returns the distinct languages present in the corpus.
func (s *Store) Languages(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT language FROM chunks WHERE language != '' ORDER BY language")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var langs []string
	for rows.Next() {
		var lang string
		if err := rows.Scan(&lang); err != nil {
			return nil, err
		}
		langs = append(langs, lang)
	}
	return langs, rows.Err()
}

// DBStats summarizes corpus size for health reporting.
type DBStats struct {
	Chunks     int `json:"chunks"`
	Embeddings int `json:"embeddings"`
	Sources    int `json:"sources"`
	Queries    int `json:"queries"`
}

// Stats returns counts of chunks, embeddings, distinct sources, and logged queries.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM chunks", &stats.Chunks},
		{"SELECT COUNT(*) FROM vec_chunks", &stats.Embeddings},
		{"SELECT COUNT(DISTINCT source) FROM chunks", &stats.Sources},
		{"SELECT COUNT(*) FROM query_log", &stats.Queries},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func decodeCanonicals(col sql.NullString, chunkID string, dst *[]CanonicalAmount) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		return fmt.Errorf("decoding canonicals for %s: %w", chunkID, err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializeFloat32 packs a vector into the little-endian byte form
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
