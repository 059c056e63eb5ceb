package imglookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFindImageHit(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"list":[{"imgLarge":"/retrieve.php?img=ecg1"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	url, err := c.FindImage(context.Background(), "ECG chest pain")
	if err != nil {
		t.Fatalf("FindImage: %v", err)
	}
	if url != srv.URL+"/retrieve.php?img=ecg1" {
		t.Errorf("url = %q", url)
	}
	if gotQuery != "ECG chest pain" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestFindImageMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"list":[]}`))
	}))
	defer srv.Close()

	url, err := New(srv.URL).FindImage(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("FindImage: %v", err)
	}
	if url != "" {
		t.Errorf("url = %q, want empty on miss", url)
	}
}

func TestFindImageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).FindImage(context.Background(), "ECG"); err == nil {
		t.Error("FindImage succeeded on 500")
	}
}

func TestFindImageBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL).FindImage(context.Background(), "ECG"); err == nil {
		t.Error("FindImage succeeded on invalid JSON")
	}
}

func TestNewDefaultsBaseURL(t *testing.T) {
	c := New("")
	if c.baseURL != defaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, defaultBaseURL)
	}
}
