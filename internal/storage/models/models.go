package models

import "time"

// Intent is one corpus entry: a stable user-visible tag with its
// training patterns and reply templates.
type Intent struct {
	ID        int       `json:"-"`
	Tag       string    `json:"tag"`
	Patterns  []string  `json:"patterns"`
	Responses []string  `json:"responses"`
	CreatedAt time.Time `json:"-"`
}

// CorpusFile is the JSON training-data layout shared with the trainer.
type CorpusFile struct {
	Intents []Intent `json:"intents"`
}

type Conversation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	Intent         string    `json:"intent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	SenderUser = "user"
	SenderBot  = "bot"
)
