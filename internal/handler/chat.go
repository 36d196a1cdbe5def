package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chathistory/internal/logger"
	"github.com/chathistory/internal/middleware"
	"github.com/chathistory/internal/model"
	"github.com/chathistory/internal/repository"
	"github.com/chathistory/internal/ws"
)

// PushNotifier отправляет пуш-уведомления. Если nil — пуши не отправляются.
type PushNotifier interface {
	Notify(ctx context.Context, userID, title, body string, data map[string]string)
}

// ChatHandler — CRUD истории чатов. Владелец берётся только из контекста
// (auth-middleware); клиентское поле владельца не принимается нигде.
type ChatHandler struct {
	chatRepo   *repository.ChatRepository
	hub        *ws.Hub
	pushClient PushNotifier
}

func NewChatHandler(chatRepo *repository.ChatRepository, hub *ws.Hub, pushClient PushNotifier) *ChatHandler {
	return &ChatHandler{chatRepo: chatRepo, hub: hub, pushClient: pushClient}
}

// chatID валидирует идентификатор из пути до любого похода в хранилище.
// Синтаксически кривой id — это 400, не 404.
func chatID(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "chatId")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// Create создаёт пустой чат текущего владельца и возвращает его целиком (201).
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chat, err := h.chatRepo.Create(r.Context(), userID)
	if err != nil {
		logger.Errorf("create chat user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to create chat")
		return
	}
	writeJSON(w, http.StatusCreated, chat)
	h.hub.BroadcastToUser(userID, ws.OutgoingMessage{Type: ws.EventChatCreated, Payload: chat})
}

// List возвращает сводки всех чатов владельца (без messages).
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	summaries, err := h.chatRepo.ListForOwner(r.Context(), userID)
	if err != nil {
		logger.Errorf("list chats user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Get возвращает чат целиком. Чужой или несуществующий чат — одинаковые 404.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	userID := middleware.GetUserID(r.Context())
	chat, err := h.chatRepo.GetForOwner(r.Context(), id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		logger.Errorf("get chat id=%s user=%s: %v", id, userID, err)
		writeError(w, http.StatusInternalServerError, "failed to get chat")
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// AddMessage атомарно дописывает сообщение и обновляет lastActivityTimestamp,
// затем перечитывает документ. Сбой перечитывания после успешного UPDATE —
// рассинхрон хранилища, 500 (не 404).
func (h *ChatHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	var msg model.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	now := time.Now().UTC()
	err := h.chatRepo.AppendMessage(r.Context(), id, userID, msg, now)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		logger.Errorf("append message chat=%s user=%s: %v", id, userID, err)
		writeError(w, http.StatusInternalServerError, "failed to add message")
		return
	}

	chat, err := h.chatRepo.GetByID(r.Context(), id)
	if err != nil {
		logger.Errorf("reread chat=%s after append: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, chat)

	h.hub.BroadcastToUser(userID, ws.OutgoingMessage{Type: ws.EventMessageAdded, Payload: chat})
	if h.pushClient != nil && msg.Sender != "user" {
		// Ответ ассистента: владелец мог уйти со страницы, пока ждал генерацию.
		go h.notifyOwner(userID, chat, msg)
	}
}

func (h *ChatHandler) notifyOwner(userID string, chat *model.Chat, msg model.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	body := msg.Content
	if len(body) > 120 {
		body = body[:120] + "…"
	}
	h.pushClient.Notify(ctx, userID, chat.Title, body, map[string]string{"chat_id": chat.ID})
}

// UpdateTitleRequest — тело PUT /api/chats/{chatId}.
type UpdateTitleRequest struct {
	Title string `json:"title"`
}

// UpdateTitle заменяет заголовок и обновляет lastActivityTimestamp, затем перечитывает.
func (h *ChatHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	var req UpdateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	now := time.Now().UTC()
	err := h.chatRepo.UpdateTitle(r.Context(), id, userID, req.Title, now)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		logger.Errorf("update title chat=%s user=%s: %v", id, userID, err)
		writeError(w, http.StatusInternalServerError, "failed to update chat")
		return
	}

	chat, err := h.chatRepo.GetByID(r.Context(), id)
	if err != nil {
		logger.Errorf("reread chat=%s after title update: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, chat)
	h.hub.BroadcastToUser(userID, ws.OutgoingMessage{Type: ws.EventChatUpdated, Payload: chat})
}

// Delete удаляет один чат владельца (204). Ноль удалённых — 404.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	userID := middleware.GetUserID(r.Context())
	err := h.chatRepo.Delete(r.Context(), id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		logger.Errorf("delete chat=%s user=%s: %v", id, userID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete chat")
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.hub.BroadcastToUser(userID, ws.OutgoingMessage{Type: ws.EventChatDeleted, Payload: ws.ChatRef{ID: id}})
}

// DeleteAll удаляет все чаты владельца. Ноль удалённых — всё равно 204.
func (h *ChatHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	n, err := h.chatRepo.DeleteAllForOwner(r.Context(), userID)
	if err != nil {
		logger.Errorf("delete all chats user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete chats")
		return
	}
	logger.Infof("deleted %d chats user=%s", n, userID)
	w.WriteHeader(http.StatusNoContent)
	h.hub.BroadcastToUser(userID, ws.OutgoingMessage{Type: ws.EventChatsCleared, Payload: struct{}{}})
}
