// Package vectorstore maintains OpenCrust's opaque-vector KNN table: a
// string-keyed embeddings table bridged to SQLite's vec0 virtual table
// through a monotonic integer id map. The native extension
// (asg017/sqlite-vec-go-bindings) is loaded process-wide at most once; when
// it is unavailable on a given build, search degrades to an empty result and
// insert stores only the metadata row, silently skipping the vector, and
// VecEnabled reports the capability so a
// caller can switch to an in-memory cosine comparator instead.
package vectorstore

import (
	"database/sql"
	"embed"
	"encoding/binary"
	"math"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opencrust/opencrust/errors"
	"github.com/opencrust/opencrust/internal/dbutil"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

// extensionProbe guards the one-time, process-wide check for whether the
// vec0 virtual table module actually works on this build (the extension
// registers itself in dbutil's init, but a CGO-less build or a platform
// without the compiled library silently leaves vec0 absent).
var (
	extensionProbe sync.Once
	extensionOK    bool
)

func probeExtension(db *sql.DB) bool {
	extensionProbe.Do(func() {
		_, err := db.Exec("CREATE VIRTUAL TABLE temp.opencrust_vec_probe USING vec0(embedding float[1])")
		if err == nil {
			extensionOK = true
			db.Exec("DROP TABLE temp.opencrust_vec_probe")
		}
	})
	return extensionOK
}

// EmbeddingRow is the opaque, source-tagged content row backing one entry.
type EmbeddingRow struct {
	ID        string
	Source    string
	Content   string
	Metadata  string
	CreatedAt time.Time
}

// SearchResult is one KNN match, ordered ascending by Distance by callers of
// SearchNearest.
type SearchResult struct {
	ID       string
	Distance float64
}

// Store is the vector store's connection: a single mutex-guarded *sql.DB,
// mirroring the session store's concurrency model (internal/store.Store).
type Store struct {
	mu         sync.Mutex
	db         *sql.DB
	log        *zap.SugaredLogger
	vecEnabled bool

	tableMu   sync.Mutex
	vecTables map[int]bool
}

// Open opens (creating if absent) the vector database at path and applies
// its migrations.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	db, err := dbutil.Open(path, log)
	if err != nil {
		return nil, err
	}

	if err := dbutil.ApplyMigrations(db, log, migrations, "sqlite/migrations"); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:         db,
		log:        log,
		vecEnabled: probeExtension(db),
		vecTables:  make(map[int]bool),
	}, nil
}

// InMemory opens an ephemeral, process-local vector store. Used in tests.
func InMemory(log *zap.SugaredLogger) (*Store, error) {
	return Open(":memory:", log)
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// VecEnabled reports whether the native KNN extension loaded successfully
// on this connection. False means EnsureVecTable and SearchNearest degrade
// to no-ops and InsertEmbedding stores only the metadata row; a caller can
// fall back to CosineFallback for search.
func (s *Store) VecEnabled() bool {
	return s.vecEnabled
}

func vecTableName(dim int) string {
	return "vec_embeddings_" + strconv.Itoa(dim)
}

// EnsureVecTable creates the vec_embeddings_<dim> virtual table the first
// time dimension dim is used. A no-op when the extension is unavailable.
func (s *Store) EnsureVecTable(dim int) error {
	if !s.vecEnabled {
		return nil
	}

	s.tableMu.Lock()
	defer s.tableMu.Unlock()
	if s.vecTables[dim] {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stmt := "CREATE VIRTUAL TABLE IF NOT EXISTS " + vecTableName(dim) + " USING vec0(embedding float[" + strconv.Itoa(dim) + "])"
	if _, err := s.db.Exec(stmt); err != nil {
		return errors.WrapKind(err, errors.KindDatabase, "create vec table")
	}
	s.vecTables[dim] = true
	return nil
}

// serializeVector packs a float32 vector as contiguous little-endian
// IEEE-754 bytes, the wire format sqlite-vec expects.
func serializeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// idMapRowID returns the integer rowid for entryID, inserting a fresh
// mapping row if entryID hasn't been seen before.
func (s *Store) idMapRowID(entryID string) (int64, error) {
	var rowid int64
	err := s.db.QueryRow("SELECT rowid FROM id_map WHERE entry_id = ?", entryID).Scan(&rowid)
	if err == nil {
		return rowid, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.WrapKind(err, errors.KindDatabase, "look up id_map")
	}

	res, err := s.db.Exec("INSERT INTO id_map (entry_id) VALUES (?)", entryID)
	if err != nil {
		return 0, errors.WrapKind(err, errors.KindDatabase, "insert id_map")
	}
	return res.LastInsertId()
}

// InsertEmbedding upserts row's metadata, then (when the extension is
// available) upserts its vector into the vec_embeddings_<dim> table keyed by
// the id map's rowid, creating that table on first use via EnsureVecTable.
// A no-op on the vector half when the extension is unavailable.
func (s *Store) InsertEmbedding(row EmbeddingRow, vec []float32, dim int) error {
	if err := s.EnsureVecTable(dim); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO embeddings (id, source, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			content = excluded.content,
			metadata = excluded.metadata
	`, row.ID, row.Source, row.Content, row.Metadata, row.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return errors.WrapKind(err, errors.KindDatabase, "upsert embedding row")
	}

	if !s.vecEnabled {
		return nil
	}

	rowid, err := s.idMapRowID(row.ID)
	if err != nil {
		return err
	}

	stmt := "INSERT OR REPLACE INTO " + vecTableName(dim) + " (rowid, embedding) VALUES (?, ?)"
	if _, err := s.db.Exec(stmt, rowid, serializeVector(vec)); err != nil {
		return errors.WrapKind(err, errors.KindDatabase, "insert vector")
	}
	return nil
}

// SearchNearest returns up to k nearest neighbors of q in the dim-
// dimensional table, ordered by ascending distance. Returns an empty slice,
// not an error, when the extension is unavailable.
func (s *Store) SearchNearest(q []float32, dim, k int) ([]SearchResult, error) {
	if !s.vecEnabled {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stmt := `
		SELECT id_map.entry_id, v.distance
		FROM ` + vecTableName(dim) + ` v
		JOIN id_map ON id_map.rowid = v.rowid
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance ASC
	`
	rows, err := s.db.Query(stmt, serializeVector(q), k)
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindDatabase, "search nearest")
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Distance); err != nil {
			return nil, errors.WrapKind(err, errors.KindDatabase, "scan search result")
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetEmbeddingRow fetches an embedding's metadata row by id. Returns nil,
// nil when not found.
func (s *Store) GetEmbeddingRow(id string) (*EmbeddingRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row EmbeddingRow
	var createdAt string
	err := s.db.QueryRow(
		"SELECT id, source, content, metadata, created_at FROM embeddings WHERE id = ?", id,
	).Scan(&row.ID, &row.Source, &row.Content, &row.Metadata, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindDatabase, "get embedding row")
	}

	row.CreatedAt, err = parseTimestamp(createdAt)
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindDatabase, "parse embedding timestamp")
	}
	return &row, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
