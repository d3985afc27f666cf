package domain

// ProgressChannel names the pub/sub topic carrying processing updates for one
// document. External subscribers key off this exact shape, so it is a public
// contract: document_progress:{document_id}.
func ProgressChannel(documentID string) string {
	return "document_progress:" + documentID
}

// Progress steps published by the processing pipeline.
const (
	StepDownloading = "downloading"
	StepVectorizing = "vectorizing"
	StepCompleted   = "completed"
	StepFailed      = "failed"
)

// ProgressEvent is a transient notification about one processing attempt.
// Progress is monotonically non-decreasing within an attempt and the only
// event with Done=true is the terminal one.
type ProgressEvent struct {
	DocumentID string `json:"document_id"`
	Step       string `json:"step"`
	Progress   int    `json:"progress"`
	Message    string `json:"message"`
	Done       bool   `json:"done"`
}

// JobPayload is the minimal hand-off between the upload pipeline and the
// worker. The worker re-reads every mutable field from the document store
// instead of trusting queue data that may be stale by the time it runs.
type JobPayload struct {
	DocumentID string `json:"document_id"`
	CompanyID  string `json:"company_id"`
	GCSPath    string `json:"gcs_path"`
}

// ProcessDocumentJob is the job name the upload pipeline enqueues and the
// worker registers a handler for.
const ProcessDocumentJob = "process_document"
