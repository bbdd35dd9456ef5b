package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"docrag/internal/config"
	"docrag/internal/models"
	"docrag/internal/util"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the GORM database instance
type GormDB struct {
	*gorm.DB
}

// Opener opens one connection attempt.
type Opener func(dsn string) (*gorm.DB, error)

// OpenPostgres is the real Opener. gorm.Open pings, so an unreachable
// server fails here rather than on the first query.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn), // Info logs every vector literal
	})
}

/*
LEARNING: BOUNDED RETRY WITH A PRECOMPUTED SCHEDULE

The store usually starts alongside us (docker compose), so the first
connection attempts can fail. The schedule is computed up front
(3s, 6s, 9s, ... for the default step) and the loop stops at its end.
No recursion, and the attempt count is a plain config value.
*/

// NewGorm connects with retries, then migrates the schema for vectors of
// cfg.EmbeddingDim values.
func NewGorm(ctx context.Context, cfg *config.Config) (*GormDB, error) {
	db, err := Connect(ctx, cfg.DatabaseURL(), cfg.DBConnectAttempts, cfg.DBConnectBackoff, OpenPostgres, util.Sleep)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db, cfg.EmbeddingDim); err != nil {
		if sqlDB, closeErr := db.DB(); closeErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}

	log.Println("✓ Database connected and migrated successfully")
	return &GormDB{db}, nil
}

// Connect calls open until it succeeds or attempts run out.
// Exhaustion returns an error matching models.ErrStoreConnection.
func Connect(ctx context.Context, dsn string, attempts int, step time.Duration, open Opener, sleep util.SleepFunc) (*gorm.DB, error) {
	var db *gorm.DB

	err := util.Retry(ctx, util.LinearSchedule(step, attempts), sleep,
		func(attempt int, wait time.Duration, err error) {
			log.Printf("⚠️  Database connection attempt %d/%d failed: %v (retrying in %s)", attempt, attempts, err, wait)
		},
		func() error {
			conn, err := open(dsn)
			if err != nil {
				return err
			}
			db = conn
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreConnection, err)
	}
	return db, nil
}

// Migrate enables pgvector, creates the tables, pins the embedding column
// to vector(dim) and builds the inner-product HNSW index.
func Migrate(ctx context.Context, db *gorm.DB, dim int) error {
	tx := db.WithContext(ctx)

	// Enable pgvector extension
	if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	// Learning: GORM automatically creates/updates tables based on struct definitions
	if err := tx.AutoMigrate(&models.Document{}, &models.DocumentChunk{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := pinEmbeddingWidth(tx, dim); err != nil {
		return err
	}

	// Note: This is done manually since GORM doesn't have built-in vector index support
	err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding
		ON document_chunks USING hnsw (embedding vector_ip_ops)
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}

// pinEmbeddingWidth gives the untyped vector column its width. pgvector
// stores the width in atttypmod, -1 meaning unconstrained.
func pinEmbeddingWidth(tx *gorm.DB, dim int) error {
	var typmod int
	err := tx.Raw(`
		SELECT a.atttypmod
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		WHERE c.relname = 'document_chunks' AND a.attname = 'embedding' AND NOT a.attisdropped
	`).Scan(&typmod).Error
	if err != nil {
		return fmt.Errorf("failed to inspect embedding column: %w", err)
	}

	switch {
	case typmod == dim:
		return nil
	case typmod > 0:
		return fmt.Errorf("embedding column is vector(%d), configured %d: %w", typmod, dim, models.ErrEmbeddingDimensionMismatch)
	}

	if err := tx.Exec(fmt.Sprintf("ALTER TABLE document_chunks ALTER COLUMN embedding TYPE vector(%d)", dim)).Error; err != nil {
		return fmt.Errorf("failed to set embedding width: %w", err)
	}
	log.Printf("✓ Embedding column pinned to vector(%d)", dim)
	return nil
}

// Close closes the database connection
func (db *GormDB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
