package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatWireFormat(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	c := Chat{
		ID:                    "6f1b0a1e-0000-4000-8000-00000000000a",
		UserID:                "user-1",
		Title:                 DefaultTitle,
		Messages:              []Message{{Sender: "user", Content: "hi"}},
		LastActivityTimestamp: ts,
	}
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "6f1b0a1e-0000-4000-8000-00000000000a",
		"user_id": "user-1",
		"title": "New Chat",
		"messages": [{"sender":"user","content":"hi"}],
		"lastActivityTimestamp": "2026-03-14T09:26:53Z"
	}`, string(raw))
}

func TestEmptyMessagesIsArrayNotNull(t *testing.T) {
	c := Chat{Messages: []Message{}}
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"messages":[]`)
}

func TestSummaryDropsMessages(t *testing.T) {
	c := Chat{
		ID:                    "id-1",
		UserID:                "user-1",
		Title:                 "Named",
		Messages:              []Message{{Sender: "user", Content: "secret"}},
		LastActivityTimestamp: time.Now(),
	}
	s := c.Summary()
	assert.Equal(t, c.ID, s.ID)
	assert.Equal(t, c.Title, s.Title)
	assert.Equal(t, c.LastActivityTimestamp, s.LastActivityTimestamp)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "messages")
	assert.NotContains(t, string(raw), "secret")
}
