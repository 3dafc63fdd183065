package agents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/obscura-io/obscura/agent"
	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/inference"
	"github.com/obscura-io/obscura/rag"
)

// fakeInference replays canned JSON responses in call order and records
// every request it sees.
type fakeInference struct {
	responses []string
	requests  []inference.Request
	err       error
	healthy   bool
}

func (f *fakeInference) Generate(ctx context.Context, req inference.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeInference) GenerateJSON(ctx context.Context, req inference.Request, out any) error {
	resp, err := f.Generate(ctx, req)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(inference.ExtractJSON(resp)), out)
}

func (f *fakeInference) Healthy(context.Context) bool { return f.healthy }

// fakeRetriever returns a fixed guidance or error.
type fakeRetriever struct {
	guidance rag.Guidance
	err      error
	calls    int
}

func (f *fakeRetriever) Context(ctx context.Context, docType, sample string, entityTypes []string) (rag.Guidance, error) {
	f.calls++
	if f.err != nil {
		return rag.Guidance{}, f.err
	}
	return f.guidance, nil
}

func textDocument(t *testing.T, text string) *document.Document {
	t.Helper()
	return &document.Document{
		FileName: "sample.pdf",
		Sections: []document.Section{{Type: "paragraph", Text: text}},
	}
}

func stageTask(t *testing.T, taskType string, state *document.State) agent.Task {
	t.Helper()
	return agent.NewTask(taskType, state, 30*time.Second)
}
