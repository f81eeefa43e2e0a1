package feedback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hammamikhairi/distype/internal/logger"
)

func TestSubmitPostsForm(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got = map[string]string{
			"email": r.PostForm.Get("email"),
			"text":  r.PostForm.Get("text"),
			"app":   r.PostForm.Get("app"),
		}
		w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, logger.New(logger.LevelOff, nil), WithApp("test-app"))
	if err := c.Submit(context.Background(), " me@example.com ", "Great app"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got["email"] != "me@example.com" || got["text"] != "Great app" || got["app"] != "test-app" {
		t.Fatalf("unexpected form: %v", got)
	}
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rejected", http.StatusOK, `{"status":0}`, ErrRejected},
		{"server error", http.StatusInternalServerError, `oops`, nil},
		{"not json", http.StatusOK, `<html>`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, logger.New(logger.LevelOff, nil))
			err := c.Submit(context.Background(), "a@b.c", "text")
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSubmitRequiresFields(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, logger.New(logger.LevelOff, nil))
	for _, in := range [][2]string{{"", "text"}, {"a@b.c", "  "}} {
		if err := c.Submit(context.Background(), in[0], in[1]); !errors.Is(err, ErrMissingField) {
			t.Fatalf("Submit(%q, %q): expected ErrMissingField, got %v", in[0], in[1], err)
		}
	}
	if calls != 0 {
		t.Fatalf("expected no requests, got %d", calls)
	}
}
