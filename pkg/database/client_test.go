package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestClient starts a throwaway Postgres container, runs the embedded
// migrations against it, and returns a connected Client.
func newTestClient(t *testing.T) *Client {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := Config{
		Host:            host,
		Port:            port.Int(),
		User:            "test",
		Password:        "test",
		Database:        "test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}

	client, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func TestDatabaseClientConnectionPool(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Pool().Ping(ctx))

	health, err := Health(ctx, client.Pool())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxConns, int32(0))
}

func TestFullTextSearchOnFragments(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	pool := client.Pool()

	_, err := pool.Exec(ctx, `INSERT INTO tasks (id, status, query_text) VALUES ($1, 'running', 'test task')`,
		"11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO pages (id, task_id, url, canonical_url, status) VALUES
		($1, $2, 'https://example.com/a', 'https://example.com/a', 'fetched')`,
		"22222222-2222-2222-2222-222222222222", "11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO fragments (id, page_id, text, position_index) VALUES
		($1, $2, 'Critical error in production cluster with pod failures', 0)`,
		"33333333-3333-3333-3333-333333333333", "22222222-2222-2222-2222-222222222222")
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO fragments (id, page_id, text, position_index) VALUES
		($1, $2, 'Warning: high memory usage detected', 1)`,
		"44444444-4444-4444-4444-444444444444", "22222222-2222-2222-2222-222222222222")
	require.NoError(t, err)

	rows, err := pool.Query(ctx,
		`SELECT id FROM fragments WHERE to_tsvector('english', text) @@ to_tsquery('english', $1)`,
		"error & production")
	require.NoError(t, err)
	defer rows.Close()

	var results []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		results = append(results, id)
	}
	assert.Len(t, results, 1)
	assert.Equal(t, "33333333-3333-3333-3333-333333333333", results[0])
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 5,
			},
			wantErr: false,
		},
		{
			name: "missing password",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "",
				Database: "test", MaxOpenConns: 10, MaxIdleConns: 5,
			},
			wantErr: true,
		},
		{
			name: "idle conns exceed max conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 5, MaxIdleConns: 10,
			},
			wantErr: true,
		},
		{
			name: "zero max open conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 0, MaxIdleConns: 0,
			},
			wantErr: true,
		},
		{
			name: "negative idle conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 10, MaxIdleConns: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
