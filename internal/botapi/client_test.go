package botapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := New(srv.URL, Options{
		Provider:   "openai",
		NumResults: 3,
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClientChat_RequestAndResponse(t *testing.T) {
	var gotReq map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Fatalf("unexpected content type: %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"answer": "Gamma measures the rate of change of delta.",
			"conversation_id": "conv-1",
			"sources": [
				{
					"title": "Options Greeks Explained",
					"video_id": "abc123def45",
					"url": "https://www.youtube.com/watch?v=abc123def45",
					"start_timestamp_seconds": 95.5
				}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	resp, err := client.Chat(context.Background(), "what is gamma?", "conv-1")
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	if gotReq["query"] != "what is gamma?" {
		t.Fatalf("unexpected query: %#v", gotReq["query"])
	}
	if gotReq["provider"] != "openai" {
		t.Fatalf("unexpected provider: %#v", gotReq["provider"])
	}
	if gotReq["num_results"] != float64(3) {
		t.Fatalf("unexpected num_results: %#v", gotReq["num_results"])
	}
	if gotReq["format"] != "json" {
		t.Fatalf("unexpected format: %#v", gotReq["format"])
	}
	if gotReq["conversation_id"] != "conv-1" {
		t.Fatalf("unexpected conversation_id: %#v", gotReq["conversation_id"])
	}

	if resp.Answer == "" || len(resp.Sources) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Sources[0].StartTimestampSeconds != 95.5 {
		t.Fatalf("unexpected timestamp: %v", resp.Sources[0].StartTimestampSeconds)
	}
}

func TestClientChat_OmitsEmptyConversationID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var gotReq map[string]any
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if _, ok := gotReq["conversation_id"]; ok {
			t.Fatalf("conversation_id should be omitted when empty: %#v", gotReq)
		}
		_, _ = w.Write([]byte(`{"answer":"hi","sources":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	if _, err := client.Chat(context.Background(), "hello", ""); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
}

func TestClientCreateConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/conversations" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"conv-42"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	id, err := client.CreateConversation(context.Background())
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if id != "conv-42" {
		t.Fatalf("unexpected conversation id: %q", id)
	}
}

func TestClientHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" || r.Method != http.MethodGet {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	status, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !status.Healthy() {
		t.Fatalf("expected healthy status, got %+v", status)
	}
}

func TestClient_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "vector store unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.Health(context.Background())
	if err == nil {
		t.Fatalf("expected error for 503")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "vector store unavailable") {
		t.Fatalf("error should carry status and body snippet: %v", err)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New("   ", Options{}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
