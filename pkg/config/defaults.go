package config

import "time"

// Defaults contains system-wide default configurations applied when a
// specific component doesn't specify its own values.
type Defaults struct {
	// SatisfactionThreshold is the research-orchestrator satisfaction gate:
	// a query is considered satisfied once its weighted satisfaction score
	// reaches this value (spec default 0.8).
	SatisfactionThreshold float64 `yaml:"satisfaction_threshold,omitempty"`

	// NoveltyFloor is validated to lie in [0, 1] but is not read by the
	// orchestrator: a harvest cycle counts toward exhaustion when its
	// extract job yields no claim, not by comparing a novelty score to
	// this floor.
	NoveltyFloor float64 `yaml:"novelty_floor,omitempty"`

	// NoveltyStaleCycles is how many consecutive stale cycles mark a query
	// exhausted.
	NoveltyStaleCycles int `yaml:"novelty_stale_cycles,omitempty"`

	// Sanitization controls claim/fragment text sanitization before it is
	// handed to the extraction LLM.
	Sanitization *SanitizationDefaults `yaml:"sanitization,omitempty"`
}

// SanitizationDefaults holds extracted-text sanitization settings, applied
// system-wide before any fragment text reaches a remote LLM prompt.
type SanitizationDefaults struct {
	Enabled          bool   `yaml:"enabled"`
	PatternGroup     string `yaml:"pattern_group"`
	SessionTagPrefix string `yaml:"session_tag_prefix,omitempty"`
}

// SchedulerConfig controls the job scheduler's worker pool, slot
// allocation, polling cadence, and liveness detection.
type SchedulerConfig struct {
	WorkerCount             int           `yaml:"worker_count,omitempty"`
	MaxConcurrentJobs       int           `yaml:"max_concurrent_jobs,omitempty"`
	PollInterval            time.Duration `yaml:"poll_interval,omitempty"`
	PollIntervalJitter      time.Duration `yaml:"poll_interval_jitter,omitempty"`
	JobTimeout              time.Duration `yaml:"job_timeout,omitempty"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout,omitempty"`
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval,omitempty"`
	OrphanThreshold         time.Duration `yaml:"orphan_threshold,omitempty"`
	HeartbeatInterval       time.Duration `yaml:"heartbeat_interval,omitempty"`

	// NetworkClientSlots bounds concurrent network_client jobs overall.
	NetworkClientSlots int `yaml:"network_client_slots,omitempty"`
	// PerDomainLimit bounds concurrent network_client jobs against a
	// single domain (spec mandates 1).
	PerDomainLimit int `yaml:"per_domain_limit,omitempty"`
	// ExclusiveSlots bounds gpu/browser_headful jobs, which are mutually
	// exclusive with each other (spec: at most one of the two running).
	ExclusiveSlots int `yaml:"exclusive_slots,omitempty"`

	// CircuitBreaker tunes the per-engine/per-domain breaker.
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuit_breaker,omitempty"`
}

// CircuitBreakerConfig tunes the closed/half_open/open breaker state
// machine guarding flaky upstream engines and domains.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold,omitempty"`
	OpenDuration     time.Duration `yaml:"open_duration,omitempty"`
	HalfOpenProbes   int           `yaml:"half_open_probes,omitempty"`
}

// RankingConfig tunes the three-stage ranking pipeline (BM25 → embedding
// cosine → cross-encoder rerank) and authority/citation blending.
type RankingConfig struct {
	BM25Candidates       int                `yaml:"bm25_candidates,omitempty"`
	EmbeddingCandidates  int                `yaml:"embedding_candidates,omitempty"`
	RerankCandidates     int                `yaml:"rerank_candidates,omitempty"`
	DomainWeights        map[string]float64 `yaml:"domain_weights,omitempty"`
	CitationWeights      [3]float64         `yaml:"citation_weights,omitempty"`
	CitationUsefulnessOn bool               `yaml:"citation_usefulness_scoring,omitempty"`
}

// RPCConfig groups the remote model-runtime endpoints the scheduler
// dispatches gpu/cpu_nlp jobs to, plus the fetcher RPC.
type RPCConfig struct {
	Embed       EndpointConfig `yaml:"embed,omitempty"`
	Rerank      EndpointConfig `yaml:"rerank,omitempty"`
	NLI         EndpointConfig `yaml:"nli,omitempty"`
	LLMGenerate EndpointConfig `yaml:"llm_generate,omitempty"`
	Fetch       EndpointConfig `yaml:"fetch,omitempty"`
}

// Stats returns the number of endpoints configured with a non-empty
// address, for startup logging.
func (r *RPCConfig) Stats() int {
	n := 0
	for _, e := range []EndpointConfig{r.Embed, r.Rerank, r.NLI, r.LLMGenerate, r.Fetch} {
		if e.Address != "" {
			n++
		}
	}
	return n
}

// EndpointConfig describes one remote RPC endpoint.
type EndpointConfig struct {
	Address string        `yaml:"address,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ProvidersConfig controls which external search/academic providers are
// exercised and their shared fetch policy.
type ProvidersConfig struct {
	Enabled        []string      `yaml:"enabled,omitempty"`
	AllowedDomains []string      `yaml:"allowed_domains,omitempty"`
	CacheTTL       time.Duration `yaml:"cache_ttl,omitempty"`
	UserAgent      string        `yaml:"user_agent,omitempty"`
	// WebSearchEndpoint is the JSON search backend the "web" provider
	// queries (a SearXNG-compatible /search?format=json endpoint). The
	// academic providers (semantic_scholar, openalex, arxiv) talk to their
	// own well-known public APIs instead and ignore this field.
	WebSearchEndpoint string `yaml:"web_search_endpoint,omitempty"`
}

// RetentionConfig controls background cleanup of completed tasks and
// settled jobs.
type RetentionConfig struct {
	TaskRetentionDays int           `yaml:"task_retention_days,omitempty"`
	JobTTL            time.Duration `yaml:"job_ttl,omitempty"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval,omitempty"`
}

// CalibrationConfig tunes NLI verifier calibration tracking and the
// degradation/rollback gate.
type CalibrationConfig struct {
	DegradationThreshold  float64 `yaml:"degradation_threshold,omitempty"`
	MinSampleSize         int     `yaml:"min_sample_size,omitempty"`
	RollbackOnDegradation bool    `yaml:"rollback_on_degradation,omitempty"`
}

// ExtractionConfig tunes the claim-extraction engine's passage selection
// and LLM-output validation retry policy.
type ExtractionConfig struct {
	// MaxPassages bounds how many ranked fragments are handed to the
	// extraction LLM prompt per page.
	MaxPassages int `yaml:"max_passages,omitempty"`
	// MaxRetries is N in §4.4's "retry up to N times with exponential
	// backoff, then give up on this page".
	MaxRetries   int           `yaml:"max_retries,omitempty"`
	RetryBackoff time.Duration `yaml:"retry_backoff,omitempty"`
	MaxTokens    int           `yaml:"max_tokens,omitempty"`
}

// DefaultSchedulerConfig returns the built-in scheduler defaults, applied
// before any user-provided veritas.yaml values are merged on top.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		WorkerCount:             8,
		MaxConcurrentJobs:       32,
		PollInterval:            500 * time.Millisecond,
		PollIntervalJitter:      100 * time.Millisecond,
		JobTimeout:              5 * time.Minute,
		GracefulShutdownTimeout: 30 * time.Second,
		OrphanDetectionInterval: 1 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
		HeartbeatInterval:       15 * time.Second,
		NetworkClientSlots:      16,
		PerDomainLimit:          1,
		ExclusiveSlots:          1,
		CircuitBreaker: &CircuitBreakerConfig{
			FailureThreshold: 2,
			OpenDuration:     30 * time.Minute,
			HalfOpenProbes:   1,
		},
	}
}

// DefaultRankingConfig returns the built-in ranking defaults.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		BM25Candidates:      200,
		EmbeddingCandidates: 50,
		RerankCandidates:    20,
		DomainWeights: map[string]float64{
			"PRIMARY":    1.0,
			"GOVERNMENT": 0.9,
			"ACADEMIC":   0.85,
			"TRUSTED":    0.7,
			"LOW":        0.4,
			"UNVERIFIED": 0.2,
			"BLOCKED":    0.0,
		},
		CitationWeights:      [3]float64{0.5, 0.3, 0.2},
		CitationUsefulnessOn: true,
	}
}

// DefaultRPCConfig returns the built-in RPC endpoint defaults (§5
// deadlines: fetch 30s, LLM 60s, NLI 60s, reranker 30s).
func DefaultRPCConfig() *RPCConfig {
	return &RPCConfig{
		Embed:       EndpointConfig{Address: "localhost:7001", Timeout: 30 * time.Second},
		Rerank:      EndpointConfig{Address: "localhost:7002", Timeout: 30 * time.Second},
		NLI:         EndpointConfig{Address: "localhost:7003", Timeout: 60 * time.Second},
		LLMGenerate: EndpointConfig{Address: "localhost:7004", Timeout: 60 * time.Second},
		Fetch:       EndpointConfig{Address: "localhost:7005", Timeout: 30 * time.Second},
	}
}

// DefaultProvidersConfig returns the built-in provider defaults.
func DefaultProvidersConfig() *ProvidersConfig {
	return &ProvidersConfig{
		Enabled:           []string{"web", "semantic_scholar", "openalex", "arxiv"},
		AllowedDomains:    nil,
		CacheTTL:          15 * time.Minute,
		UserAgent:         "veritas-research-agent/1.0",
		WebSearchEndpoint: "http://localhost:8888/search",
	}
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		TaskRetentionDays: 90,
		JobTTL:            24 * time.Hour,
		CleanupInterval:   1 * time.Hour,
	}
}

// DefaultCalibrationConfig returns the built-in calibration defaults.
func DefaultCalibrationConfig() *CalibrationConfig {
	return &CalibrationConfig{
		DegradationThreshold:  0.05,
		MinSampleSize:         200,
		RollbackOnDegradation: true,
	}
}

// DefaultExtractionConfig returns the built-in extraction engine defaults.
func DefaultExtractionConfig() *ExtractionConfig {
	return &ExtractionConfig{
		MaxPassages:  20,
		MaxRetries:   3,
		RetryBackoff: 2 * time.Second,
		MaxTokens:    2048,
	}
}

// DefaultDefaults returns the built-in system-wide defaults.
func DefaultDefaults() *Defaults {
	return &Defaults{
		SatisfactionThreshold: 0.8,
		NoveltyFloor:          0.1,
		NoveltyStaleCycles:    2,
		Sanitization: &SanitizationDefaults{
			Enabled:          true,
			PatternGroup:     "prompt_injection",
			SessionTagPrefix: "veritas-session",
		},
	}
}
