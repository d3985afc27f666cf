package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobQueue is the durable, at-least-once hand-off between the HTTP process
// and the worker. Payloads are small and opaque; the worker re-reads state
// from the document store.
type JobQueue interface {
	Enqueue(ctx context.Context, jobName string, payload any) error
	Close() error
}

// Handler executes one delivery of a job. Returning an error marks the
// attempt failed; redelivery policy belongs to the queue, not the handler.
type Handler func(ctx context.Context, payload []byte) error

// Registry maps job names to handlers. Populated at worker startup, read-only
// afterwards.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(jobName string, h Handler) {
	r.handlers[jobName] = h
}

func (r *Registry) Get(jobName string) (Handler, bool) {
	h, ok := r.handlers[jobName]
	return h, ok
}

// envelope is the wire shape of one queue entry.
type envelope struct {
	JobID      string          `json:"job_id"`
	JobName    string          `json:"job_name"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func encodeJob(jobName string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}
	return json.Marshal(envelope{
		JobID:      uuid.NewString(),
		JobName:    jobName,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	})
}

func decodeJob(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("decode job envelope: %w", err)
	}
	if env.JobName == "" {
		return envelope{}, fmt.Errorf("job envelope missing job_name")
	}
	return env, nil
}
