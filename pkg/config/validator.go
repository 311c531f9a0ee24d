package config

import "fmt"

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateScheduler(); err != nil {
		return fmt.Errorf("scheduler validation failed: %w", err)
	}
	if err := v.validateRanking(); err != nil {
		return fmt.Errorf("ranking validation failed: %w", err)
	}
	if err := v.validateRPC(); err != nil {
		return fmt.Errorf("rpc validation failed: %w", err)
	}
	if err := v.validateProviders(); err != nil {
		return fmt.Errorf("providers validation failed: %w", err)
	}
	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	if err := v.validateCalibration(); err != nil {
		return fmt.Errorf("calibration validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateScheduler() error {
	s := v.cfg.Scheduler
	if s == nil {
		return fmt.Errorf("scheduler configuration is nil")
	}
	if s.WorkerCount < 1 || s.WorkerCount > 256 {
		return fmt.Errorf("worker_count must be between 1 and 256, got %d", s.WorkerCount)
	}
	if s.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max_concurrent_jobs must be at least 1, got %d", s.MaxConcurrentJobs)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", s.PollInterval)
	}
	if s.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %v", s.PollIntervalJitter)
	}
	if s.PollIntervalJitter >= s.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval, got jitter=%v interval=%v", s.PollIntervalJitter, s.PollInterval)
	}
	if s.JobTimeout <= 0 {
		return fmt.Errorf("job_timeout must be positive, got %v", s.JobTimeout)
	}
	if s.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", s.GracefulShutdownTimeout)
	}
	if s.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %v", s.OrphanDetectionInterval)
	}
	if s.OrphanThreshold <= 0 {
		return fmt.Errorf("orphan_threshold must be positive, got %v", s.OrphanThreshold)
	}
	if s.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %v", s.HeartbeatInterval)
	}
	if s.HeartbeatInterval >= s.OrphanThreshold {
		return fmt.Errorf("heartbeat_interval must be less than orphan_threshold to prevent false orphan detection, got heartbeat=%v threshold=%v", s.HeartbeatInterval, s.OrphanThreshold)
	}
	if s.NetworkClientSlots < 1 {
		return fmt.Errorf("network_client_slots must be at least 1, got %d", s.NetworkClientSlots)
	}
	if s.PerDomainLimit < 1 {
		return fmt.Errorf("per_domain_limit must be at least 1, got %d", s.PerDomainLimit)
	}
	if s.ExclusiveSlots < 1 {
		return fmt.Errorf("exclusive_slots must be at least 1, got %d", s.ExclusiveSlots)
	}
	if s.CircuitBreaker != nil {
		cb := s.CircuitBreaker
		if cb.FailureThreshold < 1 {
			return NewValidationError("scheduler", "", "circuit_breaker.failure_threshold", fmt.Errorf("must be at least 1"))
		}
		if cb.OpenDuration <= 0 {
			return NewValidationError("scheduler", "", "circuit_breaker.open_duration", fmt.Errorf("must be positive"))
		}
		if cb.HalfOpenProbes < 1 {
			return NewValidationError("scheduler", "", "circuit_breaker.half_open_probes", fmt.Errorf("must be at least 1"))
		}
	}
	return nil
}

func (v *Validator) validateRanking() error {
	r := v.cfg.Ranking
	if r == nil {
		return fmt.Errorf("ranking configuration is nil")
	}
	if r.BM25Candidates < 1 {
		return NewValidationError("ranking", "", "bm25_candidates", fmt.Errorf("must be at least 1"))
	}
	if r.EmbeddingCandidates < 1 || r.EmbeddingCandidates > r.BM25Candidates {
		return NewValidationError("ranking", "", "embedding_candidates", fmt.Errorf("must be between 1 and bm25_candidates (%d)", r.BM25Candidates))
	}
	if r.RerankCandidates < 1 || r.RerankCandidates > r.EmbeddingCandidates {
		return NewValidationError("ranking", "", "rerank_candidates", fmt.Errorf("must be between 1 and embedding_candidates (%d)", r.EmbeddingCandidates))
	}
	sum := r.CitationWeights[0] + r.CitationWeights[1] + r.CitationWeights[2]
	if sum <= 0 {
		return NewValidationError("ranking", "", "citation_weights", fmt.Errorf("weights must sum to a positive value, got %v", r.CitationWeights))
	}
	for category, weight := range r.DomainWeights {
		if weight < 0 || weight > 1 {
			return NewValidationError("ranking", category, "domain_weights", fmt.Errorf("must be between 0 and 1, got %v", weight))
		}
	}
	return nil
}

func (v *Validator) validateRPC() error {
	r := v.cfg.RPC
	if r == nil {
		return fmt.Errorf("rpc configuration is nil")
	}
	endpoints := map[string]EndpointConfig{
		"embed":        r.Embed,
		"rerank":       r.Rerank,
		"nli":          r.NLI,
		"llm_generate": r.LLMGenerate,
		"fetch":        r.Fetch,
	}
	for name, e := range endpoints {
		if e.Address == "" {
			return NewValidationError("rpc", name, "address", ErrEndpointNotConfigured)
		}
		if e.Timeout <= 0 {
			return NewValidationError("rpc", name, "timeout", fmt.Errorf("must be positive"))
		}
	}
	return nil
}

func (v *Validator) validateProviders() error {
	p := v.cfg.Providers
	if p == nil {
		return fmt.Errorf("providers configuration is nil")
	}
	if len(p.Enabled) == 0 {
		return NewValidationError("providers", "", "enabled", fmt.Errorf("at least one provider must be enabled"))
	}
	if p.CacheTTL < 0 {
		return NewValidationError("providers", "", "cache_ttl", fmt.Errorf("must be non-negative"))
	}
	known := map[string]bool{"web": true, "semantic_scholar": true, "openalex": true, "arxiv": true}
	for _, name := range p.Enabled {
		if !known[name] {
			return NewValidationError("providers", name, "enabled", ErrProviderNotFound)
		}
	}
	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return fmt.Errorf("retention configuration is nil")
	}
	if r.TaskRetentionDays < 1 {
		return NewValidationError("retention", "", "task_retention_days", fmt.Errorf("must be at least 1"))
	}
	if r.JobTTL <= 0 {
		return NewValidationError("retention", "", "job_ttl", fmt.Errorf("must be positive"))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "", "cleanup_interval", fmt.Errorf("must be positive"))
	}
	return nil
}

func (v *Validator) validateCalibration() error {
	c := v.cfg.Calibration
	if c == nil {
		return fmt.Errorf("calibration configuration is nil")
	}
	if c.DegradationThreshold <= 0 || c.DegradationThreshold >= 1 {
		return NewValidationError("calibration", "", "degradation_threshold", fmt.Errorf("must be between 0 and 1"))
	}
	if c.MinSampleSize < 1 {
		return NewValidationError("calibration", "", "min_sample_size", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d == nil {
		return nil
	}
	if d.SatisfactionThreshold <= 0 || d.SatisfactionThreshold > 1 {
		return NewValidationError("defaults", "", "satisfaction_threshold", fmt.Errorf("must be in (0, 1]"))
	}
	if d.NoveltyFloor < 0 || d.NoveltyFloor > 1 {
		return NewValidationError("defaults", "", "novelty_floor", fmt.Errorf("must be between 0 and 1"))
	}
	if d.NoveltyStaleCycles < 1 {
		return NewValidationError("defaults", "", "novelty_stale_cycles", fmt.Errorf("must be at least 1"))
	}
	if d.Sanitization != nil && d.Sanitization.Enabled && d.Sanitization.PatternGroup == "" {
		return NewValidationError("defaults", "", "sanitization.pattern_group", fmt.Errorf("required when sanitization is enabled"))
	}
	return nil
}
