package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type recorded struct {
	method string
	path   string
	auth   string
	body   string
}

func newTestServer(t *testing.T, status func(n int, path string) int) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{r.Method, r.URL.Path, r.Header.Get("Authorization"), string(body)})
		n := len(reqs)
		mu.Unlock()
		w.WriteHeader(status(n, r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func testClient(url string) *Client {
	c := NewClient(url, "secret", 5*time.Second, testLog)
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func TestPublish_SendsAllParts(t *testing.T) {
	srv, reqs := newTestServer(t, func(int, string) int { return http.StatusOK })
	c := testClient(srv.URL)
	defer c.Close()

	m := Manifest{BookID: "42", Title: "Sample", Digest: "abc", Chunks: 1, Annotations: 2}
	if err := c.Publish(context.Background(), m, []byte(`[{"text":"x"}]`), []byte(`[]`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"/books/42/chunks", "/books/42/annotations", "/books/42"}
	if len(*reqs) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(*reqs))
	}
	for i, path := range want {
		r := (*reqs)[i]
		if r.method != http.MethodPut || r.path != path {
			t.Errorf("request %d: expected PUT %s, got %s %s", i, path, r.method, r.path)
		}
		if r.auth != "Bearer secret" {
			t.Errorf("request %d: expected bearer auth, got %q", i, r.auth)
		}
	}
	if (*reqs)[0].body != `[{"text":"x"}]` {
		t.Errorf("unexpected chunk body %q", (*reqs)[0].body)
	}
	if !strings.Contains((*reqs)[2].body, `"digest":"abc"`) {
		t.Errorf("expected manifest digest, got %q", (*reqs)[2].body)
	}
}

func TestPublish_RetriesServerErrors(t *testing.T) {
	srv, reqs := newTestServer(t, func(n int, _ string) int {
		if n <= 2 {
			return http.StatusServiceUnavailable
		}
		return http.StatusNoContent
	})
	c := testClient(srv.URL)

	if err := c.Publish(context.Background(), Manifest{BookID: "1"}, []byte(`[]`), []byte(`[]`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*reqs) != 5 {
		t.Errorf("expected 5 requests (2 retries + 3 parts), got %d", len(*reqs))
	}
}

func TestPublish_GivesUpAfterMaxRetries(t *testing.T) {
	srv, reqs := newTestServer(t, func(int, string) int { return http.StatusTooManyRequests })
	c := testClient(srv.URL)

	err := c.Publish(context.Background(), Manifest{BookID: "1"}, []byte(`[]`), []byte(`[]`))
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if len(*reqs) != MaxRetries {
		t.Errorf("expected %d attempts, got %d", MaxRetries, len(*reqs))
	}
}

func TestPublish_ClientErrorNotRetried(t *testing.T) {
	srv, reqs := newTestServer(t, func(int, string) int { return http.StatusBadRequest })
	c := testClient(srv.URL)

	err := c.Publish(context.Background(), Manifest{BookID: "1"}, []byte(`[]`), []byte(`[]`))
	if err == nil || IsRetryable(err) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
	if len(*reqs) != 1 {
		t.Errorf("expected 1 attempt, got %d", len(*reqs))
	}
}

func TestPublish_ContextCancelled(t *testing.T) {
	srv, _ := newTestServer(t, func(int, string) int { return http.StatusBadGateway })
	c := NewClient(srv.URL, "", time.Second, testLog)
	c.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Publish(ctx, Manifest{BookID: "1"}, []byte(`[]`), []byte(`[]`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		base := min(time.Duration(1<<uint(attempt))*time.Second, 30*time.Second)
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: backoff %s outside [%s, %s)", attempt, d, base, base+base/2)
		}
	}
}
