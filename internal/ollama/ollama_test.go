// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestClient points a client at a fake Ollama server.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL}), srv
}

// =============================================================================
// HEALTH CHECK TESTS
// =============================================================================

func TestCheckRunning(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning failed: %v", err)
	}
}

func TestCheckRunningNotRunning(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: url})
	err := client.CheckRunning(context.Background())
	if !IsNotRunning(err) {
		t.Errorf("err = %v, want not-running", err)
	}
}

// =============================================================================
// MODEL OPERATION TESTS
// =============================================================================

func TestListModels(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s, want /api/tags", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[
			{"name":"llama3.2:latest","size":2019393189,"details":{"parameter_size":"3.2B","quantization_level":"Q4_K_M"}},
			{"name":"qwen2.5:7b","size":4683087332}
		]}`))
	}))

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("len = %d, want 2", len(models))
	}
	if models[0].Name != "llama3.2:latest" {
		t.Errorf("name = %q", models[0].Name)
	}
	if models[0].Details.ParameterSize != "3.2B" {
		t.Errorf("parameter size = %q", models[0].Details.ParameterSize)
	}
}

func TestModelExistsMatchesLatestTag(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3.2:latest"}]}`))
	}))

	ok, err := client.ModelExists(context.Background(), "llama3.2")
	if err != nil {
		t.Fatalf("ModelExists failed: %v", err)
	}
	if !ok {
		t.Error("llama3.2 should match llama3.2:latest")
	}

	ok, _ = client.ModelExists(context.Background(), "mistral")
	if ok {
		t.Error("mistral should not exist")
	}
}

func TestPullModel(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			t.Errorf("path = %s, want /api/pull", r.URL.Path)
		}
		w.Write([]byte(
			`{"status":"pulling manifest"}` + "\n" +
				`{"status":"downloading","digest":"sha256:abc","total":1000,"completed":250}` + "\n" +
				`{"status":"downloading","digest":"sha256:abc","total":1000,"completed":1000}` + "\n" +
				`{"status":"success"}` + "\n"))
	}))

	var updates []PullProgress
	err := client.PullModel(context.Background(), "llama3.2", func(p PullProgress) {
		updates = append(updates, p)
	})
	if err != nil {
		t.Fatalf("PullModel failed: %v", err)
	}
	if len(updates) != 4 {
		t.Fatalf("got %d progress updates, want 4", len(updates))
	}
	if got := updates[1].Percent(); got != 25 {
		t.Errorf("Percent = %v, want 25", got)
	}
	if updates[3].Status != "success" {
		t.Errorf("final status = %q", updates[3].Status)
	}
}

func TestPullModelRegistryError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(
			`{"status":"pulling manifest"}` + "\n" +
				`{"error":"pull model manifest: file does not exist"}` + "\n"))
	}))

	err := client.PullModel(context.Background(), "nope", nil)
	if err == nil {
		t.Fatal("expected error from registry")
	}
	if !strings.Contains(err.Error(), "file does not exist") {
		t.Errorf("err = %v", err)
	}
}

func TestPullModelTruncatedStream(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Stream ends without a success line.
		w.Write([]byte(`{"status":"downloading","total":1000,"completed":10}` + "\n"))
	}))

	err := client.PullModel(context.Background(), "llama3.2", nil)
	if !errors.Is(err, ErrStreamInterrupted) {
		t.Errorf("err = %v, want ErrStreamInterrupted", err)
	}
}

func TestDeleteModel(t *testing.T) {
	deleted := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/delete" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		deleted = true
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.DeleteModel(context.Background(), "llama3.2"); err != nil {
		t.Fatalf("DeleteModel failed: %v", err)
	}
	if !deleted {
		t.Error("delete request never reached the server")
	}
}

func TestDeleteModelNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	err := client.DeleteModel(context.Background(), "ghost")
	if !IsModelNotFound(err) {
		t.Errorf("err = %v, want model-not-found", err)
	}
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"hi there"},"done":true,"eval_count":4,"eval_duration":2000000000}`))
	}))

	resp, err := client.Chat(context.Background(), "llama3.2", []Message{NewUserMessage("hello")})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "hi there" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if got := resp.TokensPerSecond(); got != 2 {
		t.Errorf("TokensPerSecond = %v, want 2", got)
	}
}

func TestChatModelNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Chat(context.Background(), "ghost", []Message{NewUserMessage("hi")})
	if !IsModelNotFound(err) {
		t.Errorf("err = %v, want model-not-found", err)
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func streamBody(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestChatStreamAccumulatesFragments(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(streamBody(
			`{"model":"llama3.2","message":{"role":"assistant","content":"Hel"},"done":false}`,
			`{"model":"llama3.2","message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"model":"llama3.2","message":{"role":"assistant","content":" world"},"done":false}`,
			`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"eval_count":3,"eval_duration":1000000000}`,
		)))
	}))

	acc := NewStreamAccumulator()
	err := client.ChatStream(context.Background(), "llama3.2", []Message{NewUserMessage("hi")}, acc.Add)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if !acc.Completed() {
		t.Error("stream should be completed")
	}
	if acc.Content() != "Hello world" {
		t.Errorf("content = %q, want %q", acc.Content(), "Hello world")
	}
	if acc.Stats().CompletionTokens != 3 {
		t.Errorf("CompletionTokens = %d, want 3", acc.Stats().CompletionTokens)
	}
}

func TestChatStreamInterrupted(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Body ends before any done chunk arrives.
		w.Write([]byte(streamBody(
			`{"model":"llama3.2","message":{"role":"assistant","content":"partial"},"done":false}`,
		)))
	}))

	acc := NewStreamAccumulator()
	err := client.ChatStream(context.Background(), "llama3.2", []Message{NewUserMessage("hi")}, acc.Add)
	if !errors.Is(err, ErrStreamInterrupted) {
		t.Fatalf("err = %v, want ErrStreamInterrupted", err)
	}

	acc.Fail(err)
	if acc.Completed() {
		t.Error("interrupted stream must not report completed")
	}
	if acc.Content() != "partial" {
		t.Errorf("partial content = %q", acc.Content())
	}
}

func TestChatStreamCancelledBeforeConnect(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.ChatStream(ctx, "llama3.2", []Message{NewUserMessage("hi")}, func(StreamChunk) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if IsTimeout(err) {
		t.Error("a user cancel must not be reported as a timeout")
	}
}

func TestChatStreamSkipsMalformedLines(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(streamBody(
			`{"model":"llama3.2","message":{"role":"assistant","content":"ok"},"done":false}`,
			`this is not json`,
			`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true}`,
		)))
	}))

	acc := NewStreamAccumulator()
	if err := client.ChatStream(context.Background(), "llama3.2", nil, acc.Add); err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if acc.Content() != "ok" {
		t.Errorf("content = %q", acc.Content())
	}
}

func TestChatStreamChanDeliversErrorChunk(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(streamBody(
			`{"model":"llama3.2","message":{"role":"assistant","content":"a"},"done":false}`,
		)))
	}))

	acc := NewStreamAccumulator()
	for chunk := range client.ChatStreamChan(context.Background(), "llama3.2", nil) {
		acc.Add(chunk)
	}

	if acc.Err() == nil {
		t.Fatal("expected an error chunk from the truncated stream")
	}
	if !errors.Is(acc.Err(), ErrStreamInterrupted) {
		t.Errorf("err = %v, want ErrStreamInterrupted", acc.Err())
	}
}

func TestStreamAccumulatorIgnoresAfterDone(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Add(StreamChunk{Content: "a"})
	acc.Add(StreamChunk{Done: true})
	acc.Add(StreamChunk{Content: "b"})

	if acc.Content() != "a" {
		t.Errorf("content = %q, want %q", acc.Content(), "a")
	}
}

func TestPullProgressPercentUnknownTotal(t *testing.T) {
	p := PullProgress{Status: "pulling manifest"}
	if p.Percent() != -1 {
		t.Errorf("Percent = %v, want -1", p.Percent())
	}
}
