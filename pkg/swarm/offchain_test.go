package swarm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func offchainServer(t *testing.T, path, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestFetchLeaderboardParsesValidPayload(t *testing.T) {
	srv := offchainServer(t, "/api/leaderboard",
		`{"leaders":[{"id":"peer-a","nickname":"alice","participation":0.8,"score":12.5,"values":[{"x":1,"y":2}]}],"total":7}`)
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	payload, err := client.FetchLeaderboard(context.Background())
	if err != nil {
		t.Fatalf("FetchLeaderboard failed: %v", err)
	}
	if payload.Total != 7 {
		t.Fatalf("expected total 7, got %d", payload.Total)
	}
	if len(payload.Leaders) != 1 || payload.Leaders[0].ID != "peer-a" {
		t.Fatalf("unexpected leaders: %+v", payload.Leaders)
	}
	if len(payload.Leaders[0].Values) != 1 {
		t.Fatalf("expected values carried through, got %+v", payload.Leaders[0].Values)
	}
}

func TestFetchLeaderboardOptionalFieldsMayBeAbsent(t *testing.T) {
	srv := offchainServer(t, "/api/leaderboard",
		`{"leaders":[{"id":"peer-a","score":1,"values":[]}],"total":1}`)
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	payload, err := client.FetchLeaderboard(context.Background())
	if err != nil {
		t.Fatalf("FetchLeaderboard failed: %v", err)
	}
	if payload.Leaders[0].Nickname != "" || payload.Leaders[0].Participation != 0 {
		t.Fatalf("expected zero optional fields, got %+v", payload.Leaders[0])
	}
}

func TestFetchLeaderboardRejectsMissingRequiredField(t *testing.T) {
	srv := offchainServer(t, "/api/leaderboard",
		`{"leaders":[{"nickname":"alice","score":1,"values":[]}],"total":1}`)
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	_, err := client.FetchLeaderboard(context.Background())
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validation.Resource != "leaderboard" {
		t.Fatalf("unexpected resource %q", validation.Resource)
	}
}

func TestFetchLeaderboardRejectsMissingTotal(t *testing.T) {
	srv := offchainServer(t, "/api/leaderboard", `{"leaders":[]}`)
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	var validation *ValidationError
	if _, err := client.FetchLeaderboard(context.Background()); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFetchLeaderboardTransportFailureIsNotValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	_, err := client.FetchLeaderboard(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		t.Fatalf("transport failure must not be a ValidationError: %v", err)
	}
}

func TestFetchGossipParsesAndValidates(t *testing.T) {
	srv := offchainServer(t, "/api/gossip",
		`{"messages":[{"id":"m1","node":"peer-a","message":"hello"}]}`)
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	payload, err := client.FetchGossip(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchGossip failed: %v", err)
	}
	if len(payload.Messages) != 1 || payload.Messages[0].Node != "peer-a" {
		t.Fatalf("unexpected messages: %+v", payload.Messages)
	}
}

func TestFetchGossipRejectsIncompleteMessage(t *testing.T) {
	srv := offchainServer(t, "/api/gossip",
		`{"messages":[{"id":"m1","message":"node missing"}]}`)
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	var validation *ValidationError
	if _, err := client.FetchGossip(context.Background(), 0); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
