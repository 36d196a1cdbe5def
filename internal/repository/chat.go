package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chathistory/internal/logger"
	"github.com/chathistory/internal/model"
)

// ErrNotFound возвращается, когда запрос/обновление не нашли ни одного документа.
// Чужой чат неотличим от несуществующего: все операции фильтруют по (id, user_id).
var ErrNotFound = errors.New("not found")

// ChatRepository — доступ к коллекции чатов: один ряд = один документ чата,
// messages лежат внутри ряда как JSONB-массив.
type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// Create вставляет новый чат (владелец = userID, пустая история, заголовок по
// умолчанию) и перечитывает вставленный документ. Ошибка перечитывания —
// рассинхрон хранилища, не NotFound.
func (r *ChatRepository) Create(ctx context.Context, userID string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.Create", time.Now())()
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chats (id, user_id, title, messages, last_activity)
		 VALUES ($1, $2, $3, '[]'::jsonb, $4)`,
		id, userID, model.DefaultTitle, now,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.Create: %w", err)
	}
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.Create reread: %w", err)
	}
	return c, nil
}

// GetByID перечитывает документ по id без фильтра владельца.
// Используется только после успешной записи; для чтения от имени клиента — GetForOwner.
func (r *ChatRepository) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.GetByID", time.Now())()
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, user_id, title, messages, last_activity
		 FROM chats WHERE id = $1`, id,
	), "chatRepo.GetByID")
}

// GetForOwner возвращает чат по (id, user_id). Чужой чат = ErrNotFound.
func (r *ChatRepository) GetForOwner(ctx context.Context, id, userID string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.GetForOwner", time.Now())()
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, user_id, title, messages, last_activity
		 FROM chats WHERE id = $1 AND user_id = $2`, id, userID,
	), "chatRepo.GetForOwner")
}

func (r *ChatRepository) scanOne(row pgx.Row, op string) (*model.Chat, error) {
	c := &model.Chat{}
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Messages, &c.LastActivityTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.LastActivityTimestamp = c.LastActivityTimestamp.UTC()
	if c.Messages == nil {
		c.Messages = []model.Message{}
	}
	return c, nil
}

// ListForOwner возвращает все чаты владельца в виде сводок (проекция без
// messages). Порядок — как отдаёт хранилище, сортировка не применяется.
func (r *ChatRepository) ListForOwner(ctx context.Context, userID string) ([]model.ChatSummary, error) {
	defer logger.DeferLogDuration("chat.ListForOwner", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, last_activity FROM chats WHERE user_id = $1`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListForOwner query: %w", err)
	}
	defer rows.Close()

	summaries := make([]model.ChatSummary, 0, 16)
	for rows.Next() {
		var s model.ChatSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.LastActivityTimestamp); err != nil {
			return nil, fmt.Errorf("chatRepo.ListForOwner scan: %w", err)
		}
		s.LastActivityTimestamp = s.LastActivityTimestamp.UTC()
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.ListForOwner rows: %w", err)
	}
	return summaries, nil
}

// AppendMessage одним атомарным UPDATE дописывает сообщение в конец messages и
// обновляет last_activity, с фильтром по (id, user_id). 0 затронутых рядов = ErrNotFound.
func (r *ChatRepository) AppendMessage(ctx context.Context, id, userID string, m model.Message, now time.Time) error {
	defer logger.DeferLogDuration("chat.AppendMessage", time.Now())()
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("chatRepo.AppendMessage marshal: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE chats SET messages = messages || $3::jsonb, last_activity = $4
		 WHERE id = $1 AND user_id = $2`,
		id, userID, raw, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("chatRepo.AppendMessage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTitle заменяет заголовок и обновляет last_activity, с фильтром по
// (id, user_id). 0 затронутых рядов = ErrNotFound.
func (r *ChatRepository) UpdateTitle(ctx context.Context, id, userID, title string, now time.Time) error {
	defer logger.DeferLogDuration("chat.UpdateTitle", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE chats SET title = $3, last_activity = $4
		 WHERE id = $1 AND user_id = $2`,
		id, userID, title, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("chatRepo.UpdateTitle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет один чат по (id, user_id). 0 удалённых рядов = ErrNotFound.
func (r *ChatRepository) Delete(ctx context.Context, id, userID string) error {
	defer logger.DeferLogDuration("chat.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM chats WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllForOwner удаляет все чаты владельца. Ноль удалённых — не ошибка.
func (r *ChatRepository) DeleteAllForOwner(ctx context.Context, userID string) (int64, error) {
	defer logger.DeferLogDuration("chat.DeleteAllForOwner", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM chats WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("chatRepo.DeleteAllForOwner: %w", err)
	}
	return tag.RowsAffected(), nil
}
