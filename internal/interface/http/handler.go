package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/answered-once/internal/domain/pipeline"
	"github.com/yanqian/answered-once/internal/domain/qa"
	"github.com/yanqian/answered-once/pkg/metrics"
)

// Pipeline is the message-processing surface the webhook drives. The
// implementation owns its failure handling; the webhook is already acked by
// the time these run.
type Pipeline interface {
	HandleMessage(ctx context.Context, event pipeline.Event)
	HandleReply(ctx context.Context, event pipeline.Event)
}

// Handler wires the HTTP transport to the pipeline and the record store.
type Handler struct {
	pipeline Pipeline
	store    *qa.Store
	counters *metrics.PipelineCounters
	logger   *slog.Logger

	// dispatch runs event processing after the webhook has been acked.
	// Tests swap it for a synchronous version.
	dispatch func(fn func())
}

// NewHandler constructs the root HTTP handler.
func NewHandler(p Pipeline, store *qa.Store, counters *metrics.PipelineCounters, logger *slog.Logger) *Handler {
	h := &Handler{
		pipeline: p,
		store:    store,
		counters: counters,
		logger:   logger.With("component", "http.handler"),
	}
	h.dispatch = func(fn func()) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					h.logger.Error("event processing panicked", "panic", r)
				}
			}()
			fn()
		}()
	}
	return h
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
