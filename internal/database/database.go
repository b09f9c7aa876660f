package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/vedran77/covoit/internal/config"
	"github.com/vedran77/covoit/pkg/logger"
)

//go:embed schema.sql
var schema string

// Connect opens the pool. Query logging is decided here, once per process.
func Connect(ctx context.Context, cfg config.DB, log *logger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	if cfg.LogQueries {
		poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   queryLogger(log),
			LogLevel: tracelog.LogLevelInfo,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func queryLogger(log *logger.Logger) tracelog.Logger {
	return tracelog.LoggerFunc(func(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		kv := make([]any, 0, len(data)*2)
		for k, v := range data {
			kv = append(kv, k, v)
		}
		switch {
		case level >= tracelog.LogLevelInfo:
			log.Info("pgx: "+msg, kv...)
		case level == tracelog.LogLevelWarn:
			log.Warn("pgx: "+msg, kv...)
		default:
			log.Error("pgx: "+msg, kv...)
		}
	})
}
