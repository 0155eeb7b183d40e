package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/auth"
	"github.com/orgmanage/orgmanage/internal/platform/httpx"
	"github.com/orgmanage/orgmanage/internal/policy"
	"github.com/orgmanage/orgmanage/internal/roles"
)

// collectionTargets maps each collection to the policy target that gates
// it. Collections absent from the map are visible to any authenticated
// principal, with ownership narrowing applied separately.
var collectionTargets = map[Collection]policy.Target{
	CollectionLeaveRequests: policy.TargetHR,
	CollectionEmployees:     policy.TargetHR,
	CollectionExpenses:      policy.TargetFinance,
	CollectionITAssets:      policy.TargetIT,
	CollectionITTickets:     policy.TargetIT,
}

// Handler serves server-sent change feeds and snapshot reads backed by the
// bridge caches.
type Handler struct {
	logger    *slog.Logger
	broker    *Broker
	bridge    *Bridge
	heartbeat time.Duration
}

func NewHandler(logger *slog.Logger, broker *Broker, bridge *Bridge) *Handler {
	return &Handler{
		logger:    logger,
		broker:    broker,
		bridge:    bridge,
		heartbeat: 25 * time.Second,
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{collection}", h.stream)
	r.Get("/{collection}/snapshot", h.snapshot)
}

// resolveScope validates the collection and decides the owner filter for
// the principal. uuid.Nil means unfiltered.
func (h *Handler) resolveScope(r *http.Request) (Collection, uuid.UUID, error) {
	collection := Collection(chi.URLParam(r, "collection"))
	if !collection.Valid() {
		return "", uuid.Nil, fmt.Errorf("unknown collection %q", collection)
	}

	principal, ok := auth.PrincipalID(r)
	if !ok {
		return "", uuid.Nil, fmt.Errorf("missing principal")
	}
	set := roles.FromContext(r.Context())

	if target, gated := collectionTargets[collection]; gated {
		if policy.Visible(set, target) {
			return collection, uuid.Nil, nil
		}
		// Self-service collections still stream the principal's own rows.
		switch collection {
		case CollectionLeaveRequests, CollectionExpenses, CollectionITTickets:
			return collection, principal, nil
		}
		return "", uuid.Nil, fmt.Errorf("collection %q not permitted", collection)
	}

	switch collection {
	case CollectionNotifications:
		// Notifications are always scoped to the recipient.
		return collection, principal, nil
	case CollectionTransactions:
		if policy.CanViewAllTransactions(set) {
			return collection, uuid.Nil, nil
		}
		return collection, principal, nil
	default:
		return collection, uuid.Nil, nil
	}
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	collection, owner, err := h.resolveScope(r)
	if err != nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Streaming unsupported", "response writer cannot flush")
		return
	}

	// The server's read/write deadlines are fixed at request start and
	// would cut a standing stream off mid-flight. Clear them for the
	// lifetime of this response; the heartbeat detects dead peers instead.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Warn("clear stream write deadline", slog.Any("error", err))
	}
	if err := rc.SetReadDeadline(time.Time{}); err != nil {
		h.logger.Warn("clear stream read deadline", slog.Any("error", err))
	}

	ctx := r.Context()
	sub := h.broker.Subscribe(ctx, collection, owner)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Lost():
			// Tell the client its view may have diverged so it refetches.
			fmt.Fprint(w, "event: resync\ndata: {}\n\n")
			flusher.Flush()
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("encode change event", slog.Any("error", err))
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	collection, owner, err := h.resolveScope(r)
	if err != nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
		return
	}

	store := h.bridge.Store(collection)
	if store == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "collection has no snapshot cache")
		return
	}

	records := store.Snapshot()
	if owner != uuid.Nil {
		scoped := records[:0]
		for _, rec := range records {
			if rec.OwnerID == owner {
				scoped = append(scoped, rec)
			}
		}
		records = scoped
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"collection": collection,
		"records":    records,
	})
}
