package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthStatus represents database health and connection pool statistics.
type HealthStatus struct {
	Status          string        `json:"status"`
	ResponseTime    time.Duration `json:"response_time_ms"`
	TotalConns      int32         `json:"total_conns"`
	IdleConns       int32         `json:"idle_conns"`
	AcquiredConns   int32         `json:"acquired_conns"`
	MaxConns        int32         `json:"max_conns"`
	NewConnsCount   int64         `json:"new_conns_count"`
	AcquireCount    int64         `json:"acquire_count"`
	AcquireDuration time.Duration `json:"acquire_duration_ms"`
}

// Health checks database connectivity and returns connection pool statistics.
func Health(ctx context.Context, pool *pgxpool.Pool) (*HealthStatus, error) {
	start := time.Now()

	if err := pool.Ping(ctx); err != nil {
		return &HealthStatus{
			Status:       "unhealthy",
			ResponseTime: time.Since(start),
		}, err
	}

	stats := pool.Stat()

	return &HealthStatus{
		Status:          "healthy",
		ResponseTime:    time.Since(start),
		TotalConns:      stats.TotalConns(),
		IdleConns:       stats.IdleConns(),
		AcquiredConns:   stats.AcquiredConns(),
		MaxConns:        stats.MaxConns(),
		NewConnsCount:   stats.NewConnsCount(),
		AcquireCount:    stats.AcquireCount(),
		AcquireDuration: stats.AcquireDuration(),
	}, nil
}
