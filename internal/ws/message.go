package ws

type EventType string

// События рассылаются всем открытым вкладкам владельца после успешной записи
// в хранилище; доставка best-effort.
const (
	EventChatCreated  EventType = "chat_created"
	EventChatUpdated  EventType = "chat_updated"
	EventChatDeleted  EventType = "chat_deleted"
	EventMessageAdded EventType = "message_added"
	EventChatsCleared EventType = "chats_cleared"
)

// OutgoingMessage is what the server sends to the client.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// ChatRef — payload для событий, где достаточно идентификатора.
type ChatRef struct {
	ID string `json:"id"`
}
