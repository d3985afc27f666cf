package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/abdel7517/ragdocs/internal/domain"
)

func TestEncodeDecodeJobRoundTrip(t *testing.T) {
	payload := domain.JobPayload{
		DocumentID: "doc-1",
		CompanyID:  "company-1",
		GCSPath:    "documents/company-1/doc-1.pdf",
	}
	raw, err := encodeJob(domain.ProcessDocumentJob, payload)
	if err != nil {
		t.Fatalf("encodeJob: %v", err)
	}

	env, err := decodeJob(raw)
	if err != nil {
		t.Fatalf("decodeJob: %v", err)
	}
	if env.JobName != domain.ProcessDocumentJob {
		t.Fatalf("job name: got=%q", env.JobName)
	}
	if env.JobID == "" {
		t.Fatal("expected a generated job id")
	}
	if env.EnqueuedAt.IsZero() {
		t.Fatal("expected enqueued_at to be set")
	}

	var got domain.JobPayload
	if err := json.Unmarshal(env.Payload, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got != payload {
		t.Fatalf("payload: got=%+v want=%+v", got, payload)
	}
}

func TestDecodeJobRejectsGarbage(t *testing.T) {
	if _, err := decodeJob([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := decodeJob([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("expected missing job_name error")
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("process_document", func(ctx context.Context, payload []byte) error {
		called = true
		return nil
	})

	h, ok := r.Get("process_document")
	if !ok {
		t.Fatal("expected registered handler")
	}
	if err := h(context.Background(), nil); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !called {
		t.Fatal("handler did not run")
	}

	if _, ok := r.Get("unknown_job"); ok {
		t.Fatal("unexpected handler for unknown job")
	}
}
