package vectorindex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

type pgConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
	Table    string `json:"table"`
}

type pgStore struct {
	db        *sqlx.DB
	table     string
	dimension int
}

// filterColumns are the metadata fields an equality filter may reference.
var filterColumns = map[string]bool{
	"file_id": true,
	"source":  true,
}

func init() {
	Register("postgres", createPostgresStore)
}

func createPostgresStore(args interface{}, dimension int) (Store, error) {
	cfg := &pgConfig{}
	if err := decodePGConfig(args, cfg); err != nil {
		return nil, err
	}
	dsn := cfg.DSN
	if dsn == "" {
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := &pgStore{db: db, table: cfg.Table, dimension: dimension}
	if err := store.ensureSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func decodePGConfig(args interface{}, cfg *pgConfig) error {
	if err := decodeConfig(args, cfg); err != nil {
		return err
	}
	if cfg.Table == "" {
		cfg.Table = "chunks"
	}
	if !isSafeIdent(cfg.Table) {
		return fmt.Errorf("invalid table name: %s", cfg.Table)
	}
	if cfg.DSN == "" && (cfg.Host == "" || cfg.DBName == "") {
		return fmt.Errorf("postgres dsn or host/dbname are required")
	}
	return nil
}

func (s *pgStore) ensureSchema() error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			file_id TEXT NOT NULL DEFAULT ''
		)`, s.table, s.dimension),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_file_id_idx ON %s (file_id)", s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *pgStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, embedding, text, source, file_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET embedding = EXCLUDED.embedding,
		    text = EXCLUDED.text,
		    source = EXCLUDED.source,
		    file_id = EXCLUDED.file_id
	`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if len(rec.Vector) != s.dimension {
			return fmt.Errorf("record %s has dimension %d, index expects %d", rec.ID, len(rec.Vector), s.dimension)
		}
		_, err := stmt.ExecContext(ctx,
			rec.ID,
			pgvector.NewVector(rec.Vector),
			rec.Metadata["text"],
			rec.Metadata["source"],
			rec.Metadata["file_id"],
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

type chunkRow struct {
	ID     string          `db:"id"`
	Text   sql.NullString  `db:"text"`
	Source sql.NullString  `db:"source"`
	FileID sql.NullString  `db:"file_id"`
	Score  sql.NullFloat64 `db:"score"`
}

func (s *pgStore) Query(ctx context.Context, vector []float32, topK int, filter Filter, includeMetadata bool) ([]Match, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}
	args := []interface{}{pgvector.NewVector(vector)}
	var where []string
	for key, value := range filter {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter field: %s", key)
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", key, len(args)))
	}
	query := fmt.Sprintf("SELECT id, text, source, file_id, 1 - (embedding <=> $1) AS score FROM %s", s.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, topK)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var row chunkRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		match := Match{
			ID:    row.ID,
			Score: float32(row.Score.Float64),
		}
		if includeMetadata {
			match.Metadata = map[string]string{
				"text":    row.Text.String,
				"source":  row.Source.String,
				"file_id": row.FileID.String,
			}
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (s *pgStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s", s.table))
	return err
}

func isSafeIdent(name string) bool {
	for _, r := range name {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return name != ""
}
