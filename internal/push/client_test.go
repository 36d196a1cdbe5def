package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledClientIsNoop(t *testing.T) {
	c := NewClient("")
	assert.False(t, c.Enabled())

	// Без baseURL никаких сетевых вызовов: всё должно молча вернуться.
	assert.NoError(t, c.Subscribe(context.Background(), "u1", PushSubscription{}))
	assert.NoError(t, c.Unsubscribe(context.Background(), "u1", "https://example.com/ep"))
	c.Notify(context.Background(), "u1", "t", "b", nil)
}

func TestSubscribe(t *testing.T) {
	var got SubscribeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/subscribe", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	assert.True(t, c.Enabled())

	sub := PushSubscription{Endpoint: "https://push.example/ep1"}
	sub.Keys.P256dh = "pk"
	sub.Keys.Auth = "ak"
	require.NoError(t, c.Subscribe(context.Background(), "u1", sub))
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "https://push.example/ep1", got.Subscription.Endpoint)
	assert.Equal(t, "pk", got.Subscription.Keys.P256dh)
}

func TestSubscribeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Subscribe(context.Background(), "u1", PushSubscription{Endpoint: "e"})
	assert.Error(t, err)
}

func TestUnsubscribe(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/api/subscribe", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Unsubscribe(context.Background(), "u2", "https://push.example/ep2"))
	assert.Equal(t, "u2", got["user_id"])
	assert.Equal(t, "https://push.example/ep2", got["endpoint"])
}

func TestNotify(t *testing.T) {
	var got NotifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/notify", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.Notify(context.Background(), "u3", "Trip planning", "here is the itinerary", map[string]string{"chat_id": "c1"})
	assert.Equal(t, "u3", got.UserID)
	assert.Equal(t, "Trip planning", got.Title)
	assert.Equal(t, "c1", got.Data["chat_id"])
}
