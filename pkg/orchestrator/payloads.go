package orchestrator

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/openveritas/veritas/pkg/verrors"
)

type serpPayload struct {
	QueryID uuid.UUID `json:"query_id"`
}

type prefetchPayload struct {
	QueryID uuid.UUID `json:"query_id"`
	URL     string    `json:"url"`
	Title   string    `json:"title,omitempty"`
}

type extractJobPayload struct {
	QueryID uuid.UUID `json:"query_id"`
	PageID  uuid.UUID `json:"page_id"`
}

type verifyPayload struct {
	ClaimID    uuid.UUID `json:"claim_id"`
	FragmentID uuid.UUID `json:"fragment_id"`
}

func marshalSERPPayload(p serpPayload) ([]byte, error) {
	return marshalPayload(p, "serp")
}

func marshalPrefetchPayload(p prefetchPayload) ([]byte, error) {
	return marshalPayload(p, "prefetch")
}

func marshalExtractPayload(p extractJobPayload) ([]byte, error) {
	return marshalPayload(p, "extract")
}

func marshalPayload(v any, kind string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, verrors.Wrapf(verrors.Fatal, err, "orchestrator: marshal %s payload", kind)
	}
	return b, nil
}
