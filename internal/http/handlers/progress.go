package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abdel7517/ragdocs/internal/broker"
	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/repos"
)

// heartbeatInterval bounds how long a subscriber waits without writing
// anything; proxies tend to cut idle SSE connections well before a slow
// document finishes.
const heartbeatInterval = 30 * time.Second

// ProgressHandler relays a document's progress events to the client over SSE.
type ProgressHandler struct {
	log    *logger.Logger
	repo   repos.DocumentRepo
	broker broker.Broker
}

func NewProgressHandler(log *logger.Logger, repo repos.DocumentRepo, progressBroker broker.Broker) *ProgressHandler {
	return &ProgressHandler{
		log:    log.With("handler", "ProgressHandler"),
		repo:   repo,
		broker: progressBroker,
	}
}

// Stream serves GET progress/:document_id. Subscription happens before the
// status check so an event published in between is not lost; if the document
// is already terminal a synthetic terminal event is sent and the stream ends.
func (h *ProgressHandler) Stream(c *gin.Context) {
	documentID := c.Param("document_id")
	channel := domain.ProgressChannel(documentID)
	ctx := c.Request.Context()

	sub, err := h.broker.Subscribe(ctx, channel)
	if err != nil {
		h.log.Error("Failed to subscribe to progress channel", "document_id", documentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscription failed"})
		return
	}
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	// Late subscribers to a finished document would otherwise hang on
	// heartbeats forever.
	if doc, err := h.repo.GetAnyByID(ctx, documentID); err == nil && doc.Status.Terminal() {
		h.sendEvent(c, "progress", terminalEventFor(doc))
		return
	}

	for {
		event, err := sub.Next(ctx, heartbeatInterval)
		switch {
		case err == nil:
			h.sendEvent(c, "progress", event)
			if event.Done {
				return
			}
		case errors.Is(err, broker.ErrTimeout):
			c.SSEvent("heartbeat", "ping")
			c.Writer.Flush()
		case errors.Is(err, ctx.Err()):
			// Client disconnected.
			return
		default:
			h.log.Error("Progress subscription failed", "document_id", documentID, "error", err)
			c.SSEvent("error", "stream interrupted")
			c.Writer.Flush()
			return
		}
	}
}

func (h *ProgressHandler) sendEvent(c *gin.Context, name string, event domain.ProgressEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to marshal progress event", "document_id", event.DocumentID, "error", err)
		return
	}
	c.SSEvent(name, string(raw))
	c.Writer.Flush()
}

// terminalEventFor reconstructs the terminal event from the status column for
// subscribers who connected after processing finished.
func terminalEventFor(doc *domain.Document) domain.ProgressEvent {
	if doc.Status == domain.DocumentStatusFailed {
		message := doc.ErrorMsg
		if message == "" {
			message = "processing failed"
		}
		return domain.ProgressEvent{
			DocumentID: doc.DocumentID,
			Step:       domain.StepFailed,
			Progress:   0,
			Message:    message,
			Done:       true,
		}
	}
	return domain.ProgressEvent{
		DocumentID: doc.DocumentID,
		Step:       domain.StepCompleted,
		Progress:   100,
		Message:    "Processing complete",
		Done:       true,
	}
}
