package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openmined/aclnotify/internal/notifier"
	"github.com/openmined/aclnotify/internal/queue"
	"github.com/openmined/aclnotify/internal/server/handlers/api"
)

const maxEventBytes = 1 << 20 // 1 MiB

// Processor is the slice of the notifier the handler needs.
type Processor interface {
	Hook(ctx context.Context, ev *notifier.Event)
	Process(ctx context.Context, ev *notifier.Event) (*notifier.Summary, error)
}

type EventsHandler struct {
	proc    Processor
	pending *queue.Dispatcher[*notifier.Event]
}

// New creates a handler whose background path holds at most queueSize
// pending events, processed by workers goroutines once Start is called.
func New(proc Processor, queueSize, workers int) *EventsHandler {
	return &EventsHandler{
		proc: proc,
		pending: queue.NewDispatcher(queueSize, workers, func(ctx context.Context, ev *notifier.Event) {
			proc.Hook(ctx, ev)
		}),
	}
}

// Start begins processing queued events with ctx.
func (h *EventsHandler) Start(ctx context.Context) {
	h.pending.Start(ctx)
}

// Close stops accepting background events and drains the queue.
func (h *EventsHandler) Close() {
	h.pending.Close()
}

// Accept handles POST /api/v1/events. By default the event is queued and 202
// is returned, or 503 when the queue is full. With ?wait=true the event is
// processed inline and the summary is returned.
func (h *EventsHandler) Accept(ctx *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxEventBytes))
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("read body: %w", err))
		return
	}

	ev, err := notifier.DecodeEvent(body)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	wait, _ := strconv.ParseBool(ctx.Query("wait"))
	if !wait {
		if err := h.pending.Submit(ev); err != nil {
			api.AbortWithError(ctx, http.StatusServiceUnavailable, api.CodeQueueFull, err)
			return
		}
		ctx.PureJSON(http.StatusAccepted, gin.H{"status": "accepted"})
		return
	}

	summary, err := h.proc.Process(ctx.Request.Context(), ev)
	if err != nil {
		if errors.Is(err, notifier.ErrTicketLoad) {
			api.AbortWithError(ctx, http.StatusUnprocessableEntity, api.CodeTicketLoadFailed, err)
			return
		}
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	if summary == nil {
		ctx.PureJSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	ctx.PureJSON(http.StatusOK, summary)
}
