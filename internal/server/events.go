package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/securesign/securesign/internal/access"
	"github.com/securesign/securesign/internal/events"
)

// StreamDocumentEvents serves the per-document live stream over SSE. New
// subscribers get the replay buffer first so reconnects do not miss moves.
func (s *Server) StreamDocumentEvents(c *gin.Context) {
	doc, caller, err := s.resolveDocument(c, "docId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !caller.Capability.View {
		AbortWithError(c, access.ErrForbidden)
		return
	}

	subscription, backlog, err := s.hub.Subscribe(doc.ID.String())
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrInternal)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}

	for _, event := range backlog {
		if err := writeDocumentEvent(writer, event); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-subscription.Events():
			if err := writeDocumentEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeDocumentEvent(w io.Writer, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
