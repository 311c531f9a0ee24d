// Package rpc holds the external collaborator clients: model-runtime gRPC
// calls (embed, rerank, nli, llm_generate) and the plain HTTP fetch client.
package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/openveritas/veritas/pkg/verrors"
)

// ModelClient is a gRPC client to the external model runtime, reached via
// raw ClientConn.Invoke against structpb.Struct payloads rather than
// generated protobuf stubs — this build process cannot run protoc codegen,
// and these well-known method paths need no generated types to call.
type ModelClient struct {
	conn *grpc.ClientConn
}

// NewModelClient dials the model-runtime endpoint. Dialing is lazy (no
// handshake until the first call), mirroring the teacher's grpc.NewClient
// + insecure-transport idiom.
func NewModelClient(addr string) (*ModelClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, verrors.Wrap(verrors.Fatal, "rpc: dial model runtime", err)
	}
	return &ModelClient{conn: conn}, nil
}

// Close closes the underlying gRPC connection.
func (c *ModelClient) Close() error {
	return c.conn.Close()
}

func (c *ModelClient) invoke(ctx context.Context, method string, req *structpb.Struct, timeout time.Duration) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, classifyGRPCError(err)
	}
	return resp, nil
}

// Embed requests a dense embedding vector for a piece of text.
func (c *ModelClient) Embed(ctx context.Context, modelID, text string) ([]float32, error) {
	req, err := structpb.NewStruct(map[string]any{"model_id": modelID, "text": text})
	if err != nil {
		return nil, verrors.Wrap(verrors.InvalidInput, "rpc: build embed request", err)
	}
	resp, err := c.invoke(ctx, "/veritas.ModelRuntime/Embed", req, 60*time.Second)
	if err != nil {
		return nil, err
	}
	return structListToFloat32(resp.Fields["vector"].GetListValue())
}

// RerankPair is a single (query, fragment) pair submitted for cross-encoder
// scoring.
type RerankPair struct {
	FragmentID string
	Query      string
	Text       string
}

// Rerank scores each pair and returns scores aligned to the input order.
func (c *ModelClient) Rerank(ctx context.Context, pairs []RerankPair) ([]float64, error) {
	items := make([]any, len(pairs))
	for i, p := range pairs {
		items[i] = map[string]any{"fragment_id": p.FragmentID, "query": p.Query, "text": p.Text}
	}
	req, err := structpb.NewStruct(map[string]any{"pairs": items})
	if err != nil {
		return nil, verrors.Wrap(verrors.InvalidInput, "rpc: build rerank request", err)
	}
	resp, err := c.invoke(ctx, "/veritas.ModelRuntime/Rerank", req, 30*time.Second)
	if err != nil {
		return nil, err
	}
	scoresList := resp.Fields["scores"].GetListValue()
	scores := make([]float64, len(scoresList.GetValues()))
	for i, v := range scoresList.GetValues() {
		scores[i] = v.GetNumberValue()
	}
	return scores, nil
}

// NLILabel is the three-way entailment classification.
type NLILabel string

const (
	NLIEntailment    NLILabel = "entailment"
	NLIContradiction NLILabel = "contradiction"
	NLINeutral       NLILabel = "neutral"
)

// NLIResult is the raw (uncalibrated) verdict for one (fragment, claim) pair.
type NLIResult struct {
	Label       NLILabel
	Probability float64
}

// NLIPair is a single (premise fragment, hypothesis claim) pair to verify.
type NLIPair struct {
	FragmentID string
	Premise    string
	ClaimID    string
	Hypothesis string
}

// NLIBatch calls the remote NLI endpoint for a batch of pairs, returning
// results aligned to the input order.
func (c *ModelClient) NLIBatch(ctx context.Context, pairs []NLIPair) ([]NLIResult, error) {
	items := make([]any, len(pairs))
	for i, p := range pairs {
		items[i] = map[string]any{
			"fragment_id": p.FragmentID, "premise": p.Premise,
			"claim_id": p.ClaimID, "hypothesis": p.Hypothesis,
		}
	}
	req, err := structpb.NewStruct(map[string]any{"pairs": items})
	if err != nil {
		return nil, verrors.Wrap(verrors.InvalidInput, "rpc: build nli request", err)
	}
	resp, err := c.invoke(ctx, "/veritas.ModelRuntime/NLI", req, 60*time.Second)
	if err != nil {
		return nil, err
	}
	resultsList := resp.Fields["results"].GetListValue()
	out := make([]NLIResult, len(resultsList.GetValues()))
	for i, v := range resultsList.GetValues() {
		fields := v.GetStructValue().GetFields()
		out[i] = NLIResult{
			Label:       NLILabel(fields["label"].GetStringValue()),
			Probability: fields["probability"].GetNumberValue(),
		}
	}
	return out, nil
}

// LLMGenerate calls the remote LLM for claim extraction. Returns the raw
// JSON text of the model's response; the caller validates it against a JSON
// Schema.
func (c *ModelClient) LLMGenerate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req, err := structpb.NewStruct(map[string]any{"prompt": prompt, "max_tokens": float64(maxTokens)})
	if err != nil {
		return "", verrors.Wrap(verrors.InvalidInput, "rpc: build llm_generate request", err)
	}
	resp, err := c.invoke(ctx, "/veritas.ModelRuntime/Generate", req, 60*time.Second)
	if err != nil {
		return "", err
	}
	return resp.Fields["text"].GetStringValue(), nil
}

func structListToFloat32(list *structpb.ListValue) ([]float32, error) {
	if list == nil {
		return nil, verrors.New(verrors.ExtractionError, "rpc: embed response missing vector")
	}
	out := make([]float32, len(list.GetValues()))
	for i, v := range list.GetValues() {
		out[i] = float32(v.GetNumberValue())
	}
	return out, nil
}

// classifyGRPCError maps a gRPC failure into the verrors taxonomy for the
// scheduler to interpret. Every model-runtime failure is classified
// Transient; the gRPC status code is not inspected, so RateLimited and
// AuthRequired come only from FetchClient.
func classifyGRPCError(err error) error {
	if err == nil {
		return nil
	}
	return verrors.Wrap(verrors.Transient, "rpc: model runtime call failed", err)
}
