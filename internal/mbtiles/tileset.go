package mbtiles

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/MeKo-Tech/bydelskart/internal/tile"
	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultBatchSize is the number of tiles to buffer before flushing to the database.
const DefaultBatchSize = 100

// ErrTileNotFound is returned by Get for tiles that were never stored.
var ErrTileNotFound = errors.New("tile not found")

type entry struct {
	variant string
	coords  tile.Coords
	data    []byte // PNG, gzip-compressed on flush
}

type key struct {
	variant string
	coords  tile.Coords
}

// Tileset reads and writes variant tiles.
type Tileset struct {
	db        *sql.DB
	path      string
	readOnly  bool
	mu        sync.Mutex
	batch     []entry
	pending   map[key][]byte
	batchSize int
}

// Create opens path for writing, creating the database and schema when
// needed. Metadata is replaced with meta.
func Create(path string, meta Metadata) (*Tileset, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 50000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db, meta.DefaultVariant); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := insertMetadata(db, meta); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Tileset{
		db:        db,
		path:      path,
		batch:     make([]entry, 0, DefaultBatchSize),
		pending:   make(map[key][]byte),
		batchSize: DefaultBatchSize,
	}, nil
}

// OpenReadOnly opens an existing tileset for reading.
func OpenReadOnly(path string) (*Tileset, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='variant_tiles'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain variant_tiles table")
	}

	return &Tileset{db: db, path: path, readOnly: true}, nil
}

func createSchema(db *sql.DB, defaultVariant string) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS variant_tiles (
			variant TEXT NOT NULL,
			zoom_level INTEGER NOT NULL,
			tile_column INTEGER NOT NULL,
			tile_row INTEGER NOT NULL,
			tile_data BLOB NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS variant_tile_index
			ON variant_tiles (variant, zoom_level, tile_column, tile_row);

		DROP VIEW IF EXISTS tiles;
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	// The view cannot take bound parameters, so the variant is quoted here.
	view := fmt.Sprintf(`CREATE VIEW tiles AS
		SELECT zoom_level, tile_column, tile_row, tile_data
		FROM variant_tiles WHERE variant = %s`, quoteLiteral(defaultVariant))
	if _, err := db.Exec(view); err != nil {
		return fmt.Errorf("failed to create tiles view: %w", err)
	}
	return nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func insertMetadata(db *sql.DB, meta Metadata) error {
	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for k, v := range meta.ToMap() {
		if _, err := stmt.Exec(k, v); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", k, err)
		}
	}
	return nil
}

// SetBatchSize changes how many tiles are buffered before a flush. A size
// of 1 writes through.
func (t *Tileset) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	t.mu.Lock()
	t.batchSize = n
	t.mu.Unlock()
}

// Put buffers a tile. The batch is flushed when full.
func (t *Tileset) Put(variant string, c tile.Coords, pngData []byte) error {
	if t.readOnly {
		return fmt.Errorf("tileset %s is read-only", t.path)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.batch = append(t.batch, entry{variant: variant, coords: c, data: pngData})
	t.pending[key{variant, c}] = pngData

	if len(t.batch) >= t.batchSize {
		return t.flushLocked()
	}
	return nil
}

// Get returns the PNG data of a tile, including tiles not yet flushed.
// Coordinates are XYZ; the TMS flip happens here.
func (t *Tileset) Get(variant string, c tile.Coords) ([]byte, error) {
	t.mu.Lock()
	if data, ok := t.pending[key{variant, c}]; ok {
		t.mu.Unlock()
		return data, nil
	}
	t.mu.Unlock()

	var compressed []byte
	err := t.db.QueryRow(
		"SELECT tile_data FROM variant_tiles WHERE variant=? AND zoom_level=? AND tile_column=? AND tile_row=?",
		variant, c.Z, c.X, tmsRow(c),
	).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrTileNotFound, variant, c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tile: %w", err)
	}

	data, err := gzipDecompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress tile %s/%s: %w", variant, c, err)
	}
	return data, nil
}

// Flush writes any buffered tiles to the database.
func (t *Tileset) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

func (t *Tileset) flushLocked() error {
	if len(t.batch) == 0 {
		return nil
	}

	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO variant_tiles (variant, zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range t.batch {
		compressed, err := gzipCompress(e.data)
		if err != nil {
			return fmt.Errorf("failed to compress tile %s/%s: %w", e.variant, e.coords, err)
		}
		if _, err := stmt.Exec(e.variant, e.coords.Z, e.coords.X, tmsRow(e.coords), compressed); err != nil {
			return fmt.Errorf("failed to insert tile %s/%s: %w", e.variant, e.coords, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	t.batch = t.batch[:0]
	clear(t.pending)
	return nil
}

// Metadata reads the metadata table.
func (t *Tileset) Metadata() (Metadata, error) {
	rows, err := t.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		kv[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}
	return metadataFromMap(kv), nil
}

// Count returns the number of stored tiles of a variant.
func (t *Tileset) Count(variant string) (int, error) {
	if err := t.Flush(); err != nil {
		return 0, err
	}
	var n int
	if err := t.db.QueryRow("SELECT COUNT(*) FROM variant_tiles WHERE variant=?", variant).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tiles: %w", err)
	}
	return n, nil
}

// Close flushes any remaining tiles and closes the database.
func (t *Tileset) Close() error {
	if !t.readOnly {
		if err := t.Flush(); err != nil {
			t.db.Close()
			return err
		}
	}
	if err := t.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// tmsRow converts an XYZ row to the TMS row stored in MBTiles.
func tmsRow(c tile.Coords) uint32 {
	return (uint32(1) << c.Z) - 1 - c.Y
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}
