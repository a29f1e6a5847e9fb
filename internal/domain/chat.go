package domain

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single chat message. Messages are immutable once
// created; the role is fixed at creation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user, assistant, system
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Chat represents a persisted conversation transcript. The message list is
// saved wholesale on each turn; Version guards against concurrent writers
// overwriting each other.
type Chat struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Model identifiers accepted in chat requests.
const (
	ModelGroq   = "groq"
	ModelGemini = "gemini"
)

// ChatData carries per-request model selection and API keys.
type ChatData struct {
	Model     string `json:"model,omitempty"`
	GroqKey   string `json:"groqKey,omitempty"`
	GeminiKey string `json:"geminiKey,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	ID       string    `json:"id" binding:"required"`
	Messages []Message `json:"messages" binding:"required"`
	Data     *ChatData `json:"data,omitempty"`
}

// DeleteChatRequest identifies a chat to delete.
type DeleteChatRequest struct {
	ID string `json:"id" binding:"required"`
}

// LastUserMessage returns the most recent user-role message in msgs, or nil
// when there is none.
func LastUserMessage(msgs []Message) *Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return &msgs[i]
		}
	}
	return nil
}
