package llm

import (
	"testing"

	"github.com/flowhq/ragchat/internal/domain"
)

func TestSplitMessages_RequiresUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		messages []domain.Message
		wantErr  bool
	}{
		{
			name:     "empty",
			messages: nil,
			wantErr:  true,
		},
		{
			name: "only system",
			messages: []domain.Message{
				{Role: domain.RoleSystem, Content: "persona"},
			},
			wantErr: true,
		},
		{
			name: "only assistant",
			messages: []domain.Message{
				{Role: domain.RoleAssistant, Content: "hi"},
			},
			wantErr: true,
		},
		{
			name: "single user",
			messages: []domain.Message{
				{Role: domain.RoleUser, Content: "hello"},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := splitMessages(tt.messages)
			if tt.wantErr {
				if !domain.IsValidation(err) {
					t.Fatalf("want ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSplitMessages_FirstSystemMessageWins(t *testing.T) {
	system, turns, err := splitMessages([]domain.Message{
		{Role: domain.RoleSystem, Content: "first"},
		{Role: domain.RoleSystem, Content: "second"},
		{Role: domain.RoleUser, Content: "q"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if system != "first" {
		t.Errorf("system = %q, want the first system message verbatim", system)
	}
	if len(turns) != 1 {
		t.Errorf("got %d turns, want 1", len(turns))
	}
}

func TestSplitMessages_DefaultPersona(t *testing.T) {
	system, _, err := splitMessages([]domain.Message{
		{Role: domain.RoleUser, Content: "q"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if system != DefaultSystemPrompt {
		t.Errorf("system = %q, want default persona", system)
	}
}
