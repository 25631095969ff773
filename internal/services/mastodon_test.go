package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/spotdiff/internal/formatter"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
)

func TestMastodonService(t *testing.T) {
	t.Run("NewMastodonService", func(t *testing.T) {
		tests := []struct {
			name, host, token string
			wantErr           bool
			wantHost          string
		}{
			{"bare host", "mastodon.example", "tok", false, "https://mastodon.example"},
			{"with scheme", "http://localhost:3000/", "tok", false, "http://localhost:3000"},
			{"missing token", "mastodon.example", "", true, ""},
			{"missing host", "", "tok", true, ""},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc, err := NewMastodonService(tt.host, tt.token, "", nil)
				if tt.wantErr {
					if !errors.Is(err, shared.ErrMissingCredentials) {
						t.Errorf("expected ErrMissingCredentials, got %v", err)
					}
					return
				}
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if svc.host != tt.wantHost {
					t.Errorf("expected host %s, got %s", tt.wantHost, svc.host)
				}
				if svc.visibility != "unlisted" {
					t.Errorf("expected default visibility unlisted, got %s", svc.visibility)
				}
			})
		}
	})

	t.Run("Send", func(t *testing.T) {
		var gotAuth, gotStatus, gotVisibility string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/v1/statuses" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = r.ParseForm()
			gotAuth = r.Header.Get("Authorization")
			gotStatus = r.PostForm.Get("status")
			gotVisibility = r.PostForm.Get("visibility")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"1","url":"https://mastodon.example/@bot/1"}`)
		}))
		defer srv.Close()

		svc, err := NewMastodonService(srv.URL, "secret", "public", srv.Client())
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		notice, _ := formatter.NewNotice(models.NewTrackResult(models.Track{ID: "t1", Position: 1, Title: "Song"}), nil)

		targets, _ := svc.Targets(context.Background())
		if len(targets) != 1 {
			t.Fatalf("expected one target, got %d", len(targets))
		}
		if err := svc.Send(context.Background(), targets[0], notice); err != nil {
			t.Fatalf("Send failed: %v", err)
		}

		if gotAuth != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", gotAuth)
		}
		if gotVisibility != "public" {
			t.Errorf("expected public visibility, got %q", gotVisibility)
		}
		if !strings.Contains(gotStatus, "Song") {
			t.Errorf("status should mention the track, got %q", gotStatus)
		}
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"error":"Validation failed"}`)
		}))
		defer srv.Close()

		svc, _ := NewMastodonService(srv.URL, "secret", "", srv.Client())
		_, err := svc.PostStatus(context.Background(), "hello")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
