package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/flowhq/ragchat/internal/domain"
)

func TestNewGroqProvider_RejectsBadKeyFormat(t *testing.T) {
	for _, key := range []string{"", "sk-wrong-prefix", "gsk"} {
		if _, err := NewGroqProvider(key); !domain.IsValidation(err) {
			t.Errorf("key %q: want ValidationError, got %v", key, err)
		}
	}
}

func TestGroqProvider_StreamsFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gsk_test" {
			t.Errorf("bad auth header %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"You can ", "request a refund ", "within 30 days."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", piece)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p, err := NewGroqProvider("gsk_test", WithGroqBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("provider: %v", err)
	}

	stream, err := p.Invoke(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "What is the refund policy?"},
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}

	var got strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			t.Fatalf("stream error: %v", chunk.Err)
		}
		got.WriteString(chunk.Content)
	}
	want := "You can request a refund within 30 days."
	if got.String() != want {
		t.Errorf("streamed %q, want %q", got.String(), want)
	}
}

func TestGroqProvider_NoNetworkCallWithoutUserMessage(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p, err := NewGroqProvider("gsk_test", WithGroqBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("provider: %v", err)
	}

	_, err = p.Invoke(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "persona only"},
	})
	if !domain.IsValidation(err) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("provider made %d network calls, want 0", calls.Load())
	}
}

func TestGroqProvider_UpstreamErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limit exceeded"}}`)
	}))
	defer srv.Close()

	p, err := NewGroqProvider("gsk_test", WithGroqBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("provider: %v", err)
	}

	_, err = p.Invoke(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "q"},
	})
	var pe *domain.ProviderError
	if !asProviderError(err, &pe) {
		t.Fatalf("want ProviderError, got %v", err)
	}
	if pe.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", pe.Status)
	}
	if !strings.Contains(pe.Message, "rate limit") {
		t.Errorf("message = %q, want upstream text preserved", pe.Message)
	}
}

func TestGroqProvider_SendsSystemAndHistory(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p, _ := NewGroqProvider("gsk_test", WithGroqBaseURL(srv.URL))
	stream, err := p.Invoke(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "custom persona"},
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
		{Role: domain.RoleUser, Content: "again"},
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	for range stream {
	}

	if !strings.Contains(body, "custom persona") {
		t.Error("request body missing the caller's system message")
	}
	if !strings.Contains(body, `"stream":true`) {
		t.Error("request body missing stream flag")
	}
}

func asProviderError(err error, target **domain.ProviderError) bool {
	pe, ok := err.(*domain.ProviderError)
	if ok {
		*target = pe
	}
	return ok
}
