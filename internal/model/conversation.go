package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Conversation struct {
	ID    string `json:"id"`
	Ctime int64  `json:"ctime"`
}

// Message is one turn in a conversation transcript. Append-only.
type Message struct {
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	Ctime          int64  `json:"ctime"`
}

// ChatMessage is the wire form of a turn as clients send it.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
