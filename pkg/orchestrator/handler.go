package orchestrator

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/openveritas/veritas/pkg/scheduler"
	"github.com/openveritas/veritas/pkg/store"
	"github.com/openveritas/veritas/pkg/verification"
	"github.com/openveritas/veritas/pkg/verrors"
)

// Handle implements scheduler.JobHandler, dispatching a claimed job to the
// stage its kind names. Control flow mirrors §4's pipeline: serp finds
// URLs, prefetch fetches them, extract turns a fetched page into claims
// (enqueueing its own verification jobs), llm_fast verifies one
// (fragment, claim) pair.
func (o *Orchestrator) Handle(ctx context.Context, job *store.Job) error {
	switch job.Kind {
	case store.JobSERP:
		return o.handleSERP(ctx, job)
	case store.JobPrefetch:
		return o.handlePrefetch(ctx, job)
	case store.JobExtract:
		return o.handleExtract(ctx, job)
	case store.JobLLMFast:
		return o.handleVerify(ctx, job)
	default:
		return verrors.Newf(verrors.InvalidInput, "orchestrator: unsupported job kind %q", job.Kind)
	}
}

func (o *Orchestrator) handleSERP(ctx context.Context, job *store.Job) error {
	var p serpPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return verrors.Wrap(verrors.InvalidInput, "orchestrator: decode serp payload", err)
	}

	q, err := o.store.GetQuery(ctx, p.QueryID)
	if err != nil {
		return err
	}
	if err := o.store.UpdateQueryStatus(ctx, p.QueryID, store.QueryRunning); err != nil {
		return err
	}

	_, hits, err := o.providers.Search(ctx, q.Text)
	if err != nil {
		return verrors.Wrap(verrors.Transient, "orchestrator: provider search", err)
	}
	if len(hits) == 0 {
		if err := o.store.UpdateQueryStatus(ctx, p.QueryID, store.QueryExhausted); err != nil {
			return err
		}
		o.broadcast.Notify(job.TaskID.String())
		return nil
	}

	for _, h := range hits {
		payload, err := marshalPrefetchPayload(prefetchPayload{QueryID: p.QueryID, URL: h.URL, Title: h.Title})
		if err != nil {
			return err
		}
		domain := domainOf(h.URL)
		if _, err := o.store.EnqueueJob(ctx, job.TaskID, store.JobPrefetch, store.SlotNetworkClient, &domain, payload); err != nil {
			return verrors.Wrap(verrors.Fatal, "orchestrator: enqueue prefetch job", err)
		}
	}
	return nil
}

func (o *Orchestrator) handlePrefetch(ctx context.Context, job *store.Job) error {
	var p prefetchPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return verrors.Wrap(verrors.InvalidInput, "orchestrator: decode prefetch payload", err)
	}

	task, err := o.store.GetTask(ctx, job.TaskID)
	if err != nil {
		return err
	}
	if task.BudgetRequests != nil && task.SpentRequests >= *task.BudgetRequests {
		if err := o.store.UpdateTaskStatus(ctx, job.TaskID, store.TaskPaused); err != nil {
			return err
		}
		o.broadcast.Notify(job.TaskID.String())
		return verrors.Newf(verrors.BudgetExhausted, "orchestrator: task %s page budget exhausted", job.TaskID)
	}

	result, err := o.fetch.Fetch(ctx, p.URL)
	if err != nil {
		if verrors.Is(err, verrors.AuthRequired) {
			if _, suspendErr := o.store.SuspendJobForAuth(ctx, job.TaskID, job.ID, p.URL); suspendErr != nil {
				return verrors.Wrap(verrors.Fatal, "orchestrator: suspend job for auth", suspendErr)
			}
			o.broadcast.Notify(job.TaskID.String())
			return scheduler.ErrJobSuspended
		}
		return err
	}

	canonical := canonicalizeURL(p.URL)
	domain := domainOf(p.URL)
	title := result.Title
	if title == "" {
		title = p.Title
	}

	pageID, isNew, err := o.store.UpsertPage(ctx, job.TaskID, p.URL, canonical, domain, title)
	if err != nil {
		return verrors.Wrap(verrors.Fatal, "orchestrator: upsert page", err)
	}
	if err := o.store.MarkPageFetched(ctx, pageID); err != nil {
		return verrors.Wrap(verrors.Fatal, "orchestrator: mark page fetched", err)
	}
	if err := o.store.RecordSpend(ctx, job.TaskID, 0, 1); err != nil {
		return verrors.Wrap(verrors.Fatal, "orchestrator: record page spend", err)
	}
	if err := o.store.RecordQueryHarvest(ctx, p.QueryID, 1, 0, 0, 0, false); err != nil {
		return verrors.Wrap(verrors.Fatal, "orchestrator: record page harvest", err)
	}

	if !isNew {
		return nil
	}

	payload, err := marshalExtractPayload(extractJobPayload{QueryID: p.QueryID, PageID: pageID})
	if err != nil {
		return err
	}
	if _, err := o.store.EnqueueJob(ctx, job.TaskID, store.JobExtract, store.SlotCPUNLP, nil, payload); err != nil {
		return verrors.Wrap(verrors.Fatal, "orchestrator: enqueue extract job", err)
	}
	return nil
}

func (o *Orchestrator) handleExtract(ctx context.Context, job *store.Job) error {
	var p extractJobPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return verrors.Wrap(verrors.InvalidInput, "orchestrator: decode extract payload", err)
	}

	page, err := o.store.GetPage(ctx, p.PageID)
	if err != nil {
		return err
	}
	task, err := o.store.GetTask(ctx, job.TaskID)
	if err != nil {
		return err
	}
	if task.Status == store.TaskPaused {
		return verrors.Newf(verrors.BudgetExhausted, "orchestrator: task %s is paused, extract refused", job.TaskID)
	}
	// Pages don't persist their fetched body, so extraction re-fetches it.
	// FetchClient keeps no cache, so this is a second HTTP request.
	result, err := o.fetch.Fetch(ctx, page.URL)
	if err != nil {
		return err
	}

	claimIDs, err := o.extraction.ExtractPage(ctx, job.TaskID, page, result.Body, task.QueryText)
	if err != nil {
		return err
	}

	return o.evaluateQuery(ctx, p.QueryID, len(claimIDs) > 0)
}

func (o *Orchestrator) handleVerify(ctx context.Context, job *store.Job) error {
	var p verifyPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return verrors.Wrap(verrors.InvalidInput, "orchestrator: decode verify payload", err)
	}

	claim, err := o.store.GetClaim(ctx, p.ClaimID)
	if err != nil {
		return err
	}
	fragment, err := o.store.GetFragment(ctx, p.FragmentID)
	if err != nil {
		return err
	}

	pair := verification.Pair{
		FragmentID: p.FragmentID, Premise: fragment.Text,
		ClaimID: p.ClaimID, Hypothesis: claim.Text,
	}
	if err := o.verifier.VerifyBatch(ctx, []verification.Pair{pair}); err != nil {
		return err
	}
	o.broadcast.Notify(job.TaskID.String())
	return nil
}

// evaluateQuery recomputes a query's domain-independence/primary-source
// snapshot from its pages, updates its harvest/novelty counters, and
// transitions it to satisfied or exhausted if the new numbers cross
// either threshold.
func (o *Orchestrator) evaluateQuery(ctx context.Context, queryID uuid.UUID, harvestedUseful bool) error {
	q, err := o.store.GetQuery(ctx, queryID)
	if err != nil {
		return err
	}

	independentDomains, hasPrimary, err := o.domainDiversity(ctx, q.TaskID)
	if err != nil {
		return err
	}

	usefulDelta := 0
	if harvestedUseful {
		usefulDelta = 1
	}
	if err := o.store.RecordQueryHarvest(ctx, queryID, 0, 0, usefulDelta, independentDomains, hasPrimary); err != nil {
		return err
	}

	staleLimit := o.defaults.NoveltyStaleCycles
	if staleLimit <= 0 {
		staleLimit = 2
	}
	staleCycles, err := o.store.RecordNoveltyCycle(ctx, queryID, !harvestedUseful)
	if err != nil {
		return err
	}

	threshold := o.defaults.SatisfactionThreshold
	if threshold <= 0 {
		threshold = 0.8
	}
	score := ComputeSatisfaction(independentDomains, hasPrimary)

	var next store.QueryStatus
	switch {
	case IsSatisfied(score, threshold):
		next = store.QuerySatisfied
	case IsExhausted(staleCycles, staleLimit):
		next = store.QueryExhausted
	default:
		next = store.QueryPartial
	}
	if err := o.store.UpdateQueryStatus(ctx, queryID, next); err != nil {
		return err
	}

	if next == store.QuerySatisfied || next == store.QueryExhausted {
		o.broadcast.Notify(q.TaskID.String())
	}
	return nil
}

// domainDiversity counts distinct fetched-page domains for a task and
// whether any carries the PRIMARY source-authority category.
func (o *Orchestrator) domainDiversity(ctx context.Context, taskID uuid.UUID) (int, bool, error) {
	pages, err := o.store.HubPages(ctx, taskID, 1000)
	if err != nil {
		return 0, false, err
	}
	domains := make(map[string]bool, len(pages))
	hasPrimary := false
	for _, p := range pages {
		domains[p.Domain] = true
		category, err := o.store.DomainCategory(ctx, p.Domain)
		if err != nil {
			continue
		}
		if category == "PRIMARY" {
			hasPrimary = true
		}
	}
	return len(domains), hasPrimary, nil
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// canonicalizeURL normalizes scheme/host case, default ports, and a fixed
// set of well-known tracking parameters, per the data model's canonical-URL
// requirement. Full provider-level normalization (redirect resolution,
// broader tracker lists) lives in the provider registry; this is the
// minimum the orchestrator needs to key pages consistently.
func canonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimSuffix(u.Host, ":80")
	u.Host = strings.TrimSuffix(u.Host, ":443")
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for _, tracker := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"} {
			q.Del(tracker)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}
