package model

import "time"

// DefaultTitle — заголовок нового чата до первого переименования.
const DefaultTitle = "New Chat"

// Message — одно сообщение переписки. Хранится внутри документа чата,
// отдельной адресации не имеет; порядок в массиве = порядок разговора.
type Message struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// Chat — документ чата. Wire-формат совпадает с хранимым: id всегда строка,
// lastActivityTimestamp — ISO-8601 (UTC).
type Chat struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	Title                 string    `json:"title"`
	Messages              []Message `json:"messages"`
	LastActivityTimestamp time.Time `json:"lastActivityTimestamp"`
}

// ChatSummary — облегчённое представление для списка чатов (без messages,
// чтобы не гонять всю историю).
type ChatSummary struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	LastActivityTimestamp time.Time `json:"lastActivityTimestamp"`
}

// Summary возвращает облегчённое представление чата.
func (c *Chat) Summary() ChatSummary {
	return ChatSummary{ID: c.ID, Title: c.Title, LastActivityTimestamp: c.LastActivityTimestamp}
}
