package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/flowhq/ragchat/internal/domain"
)

func TestNewGeminiProvider_RejectsShortKey(t *testing.T) {
	for _, key := range []string{"", "short"} {
		if _, err := NewGeminiProvider(key); !domain.IsValidation(err) {
			t.Errorf("key %q: want ValidationError, got %v", key, err)
		}
	}
}

func TestGeminiProvider_EmitsSingleFragment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"full answer"}]}}]}`)
	}))
	defer srv.Close()

	p, err := NewGeminiProvider("gemini-test-key", WithGeminiBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("provider: %v", err)
	}

	stream, err := p.Invoke(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "q"},
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}

	var fragments []string
	for chunk := range stream {
		if chunk.Err != nil {
			t.Fatalf("stream error: %v", chunk.Err)
		}
		fragments = append(fragments, chunk.Content)
	}

	// The backend has no native streaming: the contract is the whole
	// completion as one fragment, then close.
	if len(fragments) != 1 {
		t.Fatalf("got %d fragments, want 1", len(fragments))
	}
	if fragments[0] != "full answer" {
		t.Errorf("fragment = %q", fragments[0])
	}
}

func TestGeminiProvider_NoNetworkCallWithoutUserMessage(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p, _ := NewGeminiProvider("gemini-test-key", WithGeminiBaseURL(srv.URL))
	_, err := p.Invoke(context.Background(), nil)
	if !domain.IsValidation(err) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("provider made %d network calls, want 0", calls.Load())
	}
}

func TestGeminiProvider_UpstreamErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid"}}`)
	}))
	defer srv.Close()

	p, _ := NewGeminiProvider("gemini-test-key", WithGeminiBaseURL(srv.URL))
	_, err := p.Invoke(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "q"},
	})
	pe, ok := err.(*domain.ProviderError)
	if !ok {
		t.Fatalf("want ProviderError, got %v", err)
	}
	if pe.Message != "API key not valid" {
		t.Errorf("message = %q, want upstream text preserved", pe.Message)
	}
}
