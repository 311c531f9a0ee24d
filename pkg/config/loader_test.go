package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVeritasYAML(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "veritas.yaml"), []byte(content), 0o644))
}

func TestInitializeAppliesBuiltinDefaultsWhenYAMLEmpty(t *testing.T) {
	dir := t.TempDir()
	writeVeritasYAML(t, dir, "{}\n")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultSchedulerConfig().WorkerCount, cfg.Scheduler.WorkerCount)
	assert.Equal(t, DefaultRankingConfig().CitationWeights, cfg.Ranking.CitationWeights)
	assert.NotEmpty(t, cfg.RPC.Embed.Address)
	assert.Equal(t, dir, cfg.ConfigDir())
}

func TestInitializeUserValuesOverrideBuiltins(t *testing.T) {
	dir := t.TempDir()
	writeVeritasYAML(t, dir, `
scheduler:
  worker_count: 4
ranking:
  bm25_candidates: 500
  embedding_candidates: 100
  rerank_candidates: 10
rpc:
  embed:
    address: embed.internal:9000
    timeout: 45s
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Scheduler.WorkerCount)
	assert.Equal(t, 500, cfg.Ranking.BM25Candidates)
	assert.Equal(t, "embed.internal:9000", cfg.RPC.Embed.Address)
	// Unset sections still carry through the built-in default.
	assert.Equal(t, DefaultRPCConfig().Rerank.Address, cfg.RPC.Rerank.Address)
}

func TestInitializeExpandsEnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VERITAS_EMBED_ADDR", "embed.example.com:9001")
	writeVeritasYAML(t, dir, `
rpc:
  embed:
    address: ${VERITAS_EMBED_ADDR}
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "embed.example.com:9001", cfg.RPC.Embed.Address)
}

func TestInitializeMissingFileReturnsLoadError(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitializeRejectsInvalidScheduler(t *testing.T) {
	dir := t.TempDir()
	writeVeritasYAML(t, dir, `
scheduler:
  worker_count: 300
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitializeRejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	writeVeritasYAML(t, dir, `
providers:
  enabled: ["not_a_real_provider"]
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}
