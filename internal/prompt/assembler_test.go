package prompt

import (
	"strings"
	"testing"

	"github.com/flowhq/ragchat/internal/domain"
)

func TestAssemble_DeterministicOutput(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleUser, Content: "What is the refund policy?"},
	}
	chunks := []domain.RetrievedChunk{
		{Text: "Refunds allowed within 30 days.", Score: 0.9},
		{Text: "Contact support to start a refund.", Score: 0.7},
	}

	first := Assemble(history, chunks)
	second := Assemble(history, chunks)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Content != second[i].Content || first[i].Role != second[i].Role {
			t.Errorf("message %d differs between runs", i)
		}
	}
}

func TestAssemble_ChunksJoinedInOrder(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		{Text: "first chunk"},
		{Text: "second chunk"},
		{Text: "third chunk"},
	}
	out := Assemble([]domain.Message{{Role: domain.RoleUser, Content: "q"}}, chunks)

	system := out[0].Content
	if out[0].Role != domain.RoleSystem {
		t.Fatalf("first message role = %s, want system", out[0].Role)
	}
	wantContext := "first chunk\n\nsecond chunk\n\nthird chunk"
	if !strings.HasSuffix(system, wantContext) {
		t.Errorf("system message does not end with joined chunks:\n%s", system)
	}
	// Relevance order comes from the service and must not be reshuffled.
	if strings.Index(system, "first chunk") > strings.Index(system, "second chunk") {
		t.Error("chunk order was not preserved")
	}
}

func TestAssemble_ReplacesCallerSystemMessages(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleSystem, Content: "caller system prompt"},
		{Role: domain.RoleUser, Content: "hello"},
		{Role: domain.RoleAssistant, Content: "hi"},
		{Role: domain.RoleUser, Content: "question"},
	}
	out := Assemble(history, nil)

	systemCount := 0
	for _, m := range out {
		if m.Role == domain.RoleSystem {
			systemCount++
			if strings.Contains(m.Content, "caller system prompt") {
				t.Error("caller system prompt leaked into assembled output")
			}
		}
	}
	if systemCount != 1 {
		t.Errorf("got %d system messages, want exactly 1", systemCount)
	}
	if len(out) != 4 {
		t.Errorf("got %d messages, want 4 (system + 3 turns)", len(out))
	}
}

func TestAssemble_EmptyChunksStillCarriesInstructions(t *testing.T) {
	out := Assemble([]domain.Message{{Role: domain.RoleUser, Content: "q"}}, nil)

	system := out[0].Content
	if !strings.Contains(system, "no matching information") {
		t.Error("instruction template missing the no-answer policy")
	}
	if !strings.Contains(system, "Markdown") {
		t.Error("instruction template missing formatting rules")
	}
}
