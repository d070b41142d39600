package messagequeue

// ConversationCreatedPayload is the schema for conversations.created messages.
type ConversationCreatedPayload struct {
	ThreadRef string `json:"thread_ref"`
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	Subject   string `json:"subject"`
	Mode      string `json:"mode"`
	Name      string `json:"conversation_name"`
}

// ConversationMessagePayload is the schema for conversations.message messages,
// published after every completed exchange.
type ConversationMessagePayload struct {
	ThreadRef      string `json:"thread_ref"`
	UserID         int    `json:"user_id"`
	Name           string `json:"conversation_name"`
	UserTurns      int    `json:"user_turns"`
	AssistantTurns int    `json:"assistant_turns"`
}

// ConversationDeletedPayload is the schema for conversations.deleted messages.
type ConversationDeletedPayload struct {
	UserID int    `json:"user_id"`
	Name   string `json:"conversation_name"`
}

// ConversationEvaluatedPayload is the schema for conversations.evaluated messages.
type ConversationEvaluatedPayload struct {
	UserID     int    `json:"user_id"`
	Name       string `json:"conversation_name"`
	Quality    int    `json:"quality"`
	Confidence int    `json:"confidence"`
}
