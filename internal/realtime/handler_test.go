package realtime

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orgmanage/orgmanage/internal/shared"
)

// withPrincipal fakes an authenticated session for stream requests.
func withPrincipal(id uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &shared.Session{}
			sess.SetUser(id.String())
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	}
}

func TestStreamOutlivesServerWriteDeadline(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	broker := NewBroker(client, logger, 16)
	handler := NewHandler(logger, broker, NewBridge(broker, nil, logger, nil))
	handler.heartbeat = 50 * time.Millisecond

	mux := chi.NewRouter()
	mux.Use(withPrincipal(uuid.New()))
	mux.Route("/realtime", handler.MountRoutes)

	srv := httptest.NewUnstartedServer(mux)
	srv.Config.WriteTimeout = 100 * time.Millisecond
	srv.Start()
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/realtime/goals")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusOK)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			lines <- line
		}
	}()

	// Let the server's write deadline lapse before publishing; a stream
	// still bound by it would be dead at this point.
	time.Sleep(300 * time.Millisecond)

	want := ChangeEvent{
		Collection: CollectionGoals,
		Action:     ActionInsert,
		Record:     Record{ID: uuid.New()},
	}
	if err := broker.Publish(context.Background(), want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream ended before the event arrived")
			}
			if strings.Contains(line, want.Record.ID.String()) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the event on the stream")
		}
	}
}
