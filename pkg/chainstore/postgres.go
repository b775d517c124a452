// Copyright 2025 Certen Protocol
//
// Durable relational Store backed by PostgreSQL. Grounded on
// pkg/database/client.go's connection-pooling discipline (sql.Open with the
// lib/pq driver, PingContext on construction, SetMaxOpenConns/SetMaxIdleConns),
// repurposed from proof-artifact rows to one row per block.

package chainstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/pojcrypto"
)

const createBlocksTable = `
CREATE TABLE IF NOT EXISTS poj_blocks (
	slot BIGINT PRIMARY KEY,
	prev_hash CHAR(64) NOT NULL,
	hash CHAR(64) NOT NULL,
	body JSONB NOT NULL
)`

// PostgresConfig configures a PostgresStore.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	Logger       *log.Logger
}

// PostgresStore is a durable, relational Store implementation.
type PostgresStore struct {
	db     *sql.DB
	logger *log.Logger
}

// NewPostgresStore opens a connection pool and ensures the blocks table
// exists.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("chainstore: postgres DSN cannot be empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[ChainStore:postgres] ", log.LstdFlags)
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createBlocksTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create poj_blocks table: %w", err)
	}

	logger.Printf("Connected to postgres chain store")
	return &PostgresStore{db: db, logger: logger}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) headRow(ctx context.Context) (*blockcodec.Block, error) {
	row := s.db.QueryRowContext(ctx, `SELECT body FROM poj_blocks ORDER BY slot DESC LIMIT 1`)
	var body []byte
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return decodeBlockJSON(body)
}

func (s *PostgresStore) PutBlock(b *blockcodec.Block) error {
	ctx := context.Background()
	if existing, err := s.BySlot(b.Slot); err != nil {
		return err
	} else if existing != nil {
		return ErrSlotExists
	}
	head, err := s.headRow(ctx)
	if err != nil {
		return err
	}
	if head == nil {
		if b.Slot != 0 {
			return ErrSlotGap
		}
	} else {
		if b.Slot != head.Slot+1 {
			return ErrSlotGap
		}
		if b.PrevHash != head.Hash {
			return ErrParentMismatch
		}
	}

	body, err := json.Marshal(b.ToWire())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO poj_blocks (slot, prev_hash, hash, body) VALUES ($1, $2, $3, $4)`,
		int64(b.Slot), b.PrevHash.Hex(), b.Hash.Hex(), body)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotExists
		}
		return err
	}
	return nil
}

func (s *PostgresStore) Head() (*blockcodec.Block, error) {
	return s.headRow(context.Background())
}

func (s *PostgresStore) BySlot(n uint64) (*blockcodec.Block, error) {
	row := s.db.QueryRowContext(context.Background(), `SELECT body FROM poj_blocks WHERE slot = $1`, int64(n))
	var body []byte
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return decodeBlockJSON(body)
}

func (s *PostgresStore) Recent(limit int) ([]*blockcodec.Block, error) {
	query := `SELECT body FROM poj_blocks ORDER BY slot DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBlocks(rows)
}

func (s *PostgresStore) Since(slot uint64, limit int) ([]*blockcodec.Block, error) {
	query := `SELECT body FROM poj_blocks WHERE slot > $1 ORDER BY slot ASC`
	args := []interface{}{int64(slot)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBlocks(rows)
}

func (s *PostgresStore) Stats() (Stats, error) {
	st := Stats{HeadSlot: -1, GenesisSlot: -1}
	row := s.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*), COALESCE(MAX(slot), -1), COALESCE(MIN(slot), -1) FROM poj_blocks`)
	if err := row.Scan(&st.TotalBlocks, &st.HeadSlot, &st.GenesisSlot); err != nil {
		return st, err
	}
	blocks, err := s.Recent(0)
	if err != nil {
		return st, err
	}
	for _, b := range blocks {
		st.TotalJudgments += len(b.Judgments)
	}
	return st, nil
}

func (s *PostgresStore) VerifyIntegrity() (IntegrityReport, error) {
	// Since() excludes the slot given, so genesis would be skipped; walk
	// explicitly from slot 0 upward instead.
	report := IntegrityReport{Valid: true}
	var prev *blockcodec.Block
	slot := uint64(0)
	for {
		b, err := s.BySlot(slot)
		if err != nil {
			return report, err
		}
		if b == nil {
			break
		}
		report.BlocksChecked++
		if prev != nil {
			if b.Slot != prev.Slot+1 {
				report.Valid = false
				report.Errors = append(report.Errors, IntegrityError{Slot: b.Slot, Message: "slot is not prev.slot + 1"})
			}
			if b.PrevHash != prev.Hash {
				report.Valid = false
				report.Errors = append(report.Errors, IntegrityError{Slot: b.Slot, Message: "prev_hash does not match previous block's hash"})
			}
		}
		// Genesis carries sha256("genesis") rather than the empty-tree root.
		isGenesisRoot := b.Slot == 0 && len(b.Judgments) == 0 && b.JudgmentsRoot == pojcrypto.GenesisJudgmentsRoot()
		if !isGenesisRoot && b.RecomputeJudgmentsRoot() != b.JudgmentsRoot {
			report.Valid = false
			report.Errors = append(report.Errors, IntegrityError{Slot: b.Slot, Message: "judgments_root does not match recomputed merkle root"})
		}
		prev = b
		slot++
	}
	return report, nil
}

func scanBlocks(rows *sql.Rows) ([]*blockcodec.Block, error) {
	var out []*blockcodec.Block
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		b, err := decodeBlockJSON(body)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func decodeBlockJSON(body []byte) (*blockcodec.Block, error) {
	var wire blockcodec.WireBlock
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}
	return blockcodec.FromWire(wire)
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505), without importing lib/pq's error type
// directly so callers without a live connection can still build.
func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }
	if pqErr, ok := err.(sqlStater); ok {
		return pqErr.SQLState() == "23505"
	}
	return false
}
