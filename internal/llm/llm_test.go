package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeAPI(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/completions":
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"role": "assistant", "content": content}},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		case "/models":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[{"id":"test-model","object":"model"}]}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteTrimsOutput(t *testing.T) {
	srv := newFakeAPI(t, "  a generated case  \n", http.StatusOK)
	c := New(srv.URL, "test-key", "test-model")

	got, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "a generated case" {
		t.Errorf("Complete = %q, want trimmed text", got)
	}
}

func TestCompleteErrorSurfaces(t *testing.T) {
	srv := newFakeAPI(t, "", http.StatusInternalServerError)
	c := New(srv.URL, "test-key", "test-model")

	if _, err := c.Complete(context.Background(), "system", "user"); err == nil {
		t.Error("Complete succeeded on upstream 500")
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, "test-key", "test-model")

	if _, err := c.Complete(context.Background(), "system", "user"); err == nil {
		t.Error("Complete succeeded with empty choices")
	}
}

func TestPing(t *testing.T) {
	srv := newFakeAPI(t, "", http.StatusOK)
	c := New(srv.URL, "test-key", "test-model")
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	srv.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping succeeded against a closed server")
	}
}
