package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/vedran77/covoit/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const (
	messageColumns = `id, sender_id, recipient_id, body, sent_at, seen`
	betweenClause  = `((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))`
)

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	_, err := r.pool.Exec(ctx, insertMessage,
		msg.ID, msg.SenderID, msg.RecipientID, msg.Body, msg.SentAt, msg.Seen,
	)
	if err != nil {
		return errors.Wrap(err, "messageRepo.Create")
	}
	return nil
}

const insertMessage = `
	INSERT INTO messages (id, sender_id, recipient_id, body, sent_at, seen)
	VALUES ($1, $2, $3, $4, $5, $6)`

func (r *MessageRepo) CreateFirst(ctx context.Context, msg *domain.Message) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "messageRepo.CreateFirst.Begin")
	}
	defer tx.Rollback(ctx)

	// Serializes first contact per pair; released on commit or rollback.
	key := domain.NewPairKey(msg.SenderID, msg.RecipientID).String()
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return false, errors.Wrap(err, "messageRepo.CreateFirst.Lock")
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE `+betweenClause+`)`,
		msg.SenderID, msg.RecipientID,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "messageRepo.CreateFirst.Exists")
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, insertMessage,
		msg.ID, msg.SenderID, msg.RecipientID, msg.Body, msg.SentAt, msg.Seen,
	); err != nil {
		return false, errors.Wrap(err, "messageRepo.CreateFirst.Insert")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "messageRepo.CreateFirst.Commit")
	}
	return true, nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	var msg domain.Message
	err := r.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id,
	).Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Body, &msg.SentAt, &msg.Seen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.GetByID")
	}
	return &msg, nil
}

func (r *MessageRepo) ListBetween(ctx context.Context, a, b uuid.UUID, after *uuid.UUID, limit int) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` + betweenClause
	args := []any{a, b}

	if after != nil {
		query += ` AND (sent_at, id) > (SELECT sent_at, id FROM messages WHERE id = $3)`
		args = append(args, *after)
	}
	query += ` ORDER BY sent_at ASC, id ASC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.ListBetween")
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Body, &msg.SentAt, &msg.Seen,
		); err != nil {
			return nil, errors.Wrap(err, "messageRepo.ListBetween.Scan")
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "messageRepo.ListBetween.Rows")
	}
	return messages, nil
}

func (r *MessageRepo) LastBetween(ctx context.Context, a, b uuid.UUID) (*domain.Message, error) {
	var msg domain.Message
	err := r.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE `+betweenClause+`
		ORDER BY sent_at DESC, id DESC LIMIT 1`, a, b,
	).Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Body, &msg.SentAt, &msg.Seen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.LastBetween")
	}
	return &msg, nil
}

func (r *MessageRepo) ExistsBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE `+betweenClause+`)`, a, b,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "messageRepo.ExistsBetween")
	}
	return exists, nil
}

func (r *MessageRepo) MarkSeen(ctx context.Context, ownerID, counterpartID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET seen = true
		WHERE recipient_id = $1 AND sender_id = $2 AND seen = false`,
		ownerID, counterpartID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "messageRepo.MarkSeen")
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepo) MarkSeenIn(ctx context.Context, ownerID, counterpartID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET seen = true
		WHERE recipient_id = $1 AND sender_id = $2 AND seen = false AND id = ANY($3::uuid[])`,
		ownerID, counterpartID, ids,
	)
	if err != nil {
		return 0, errors.Wrap(err, "messageRepo.MarkSeenIn")
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, ownerID uuid.UUID, counterpartID *uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND seen = false`
	args := []any{ownerID}
	if counterpartID != nil {
		query += ` AND sender_id = $2`
		args = append(args, *counterpartID)
	}

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "messageRepo.CountUnread")
	}
	return count, nil
}

func (r *MessageRepo) ListConversations(ctx context.Context, ownerID uuid.UUID) ([]domain.ConversationSummary, error) {
	query := `
		WITH owned AS (
			SELECT m.*,
				CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS counterpart_id
			FROM messages m
			WHERE m.sender_id = $1 OR m.recipient_id = $1
		), latest AS (
			SELECT DISTINCT ON (counterpart_id)
				counterpart_id, id, sender_id, recipient_id, body, sent_at, seen
			FROM owned
			ORDER BY counterpart_id, sent_at DESC, id DESC
		)
		SELECT l.counterpart_id, l.id, l.sender_id, l.recipient_id, l.body, l.sent_at, l.seen,
			(SELECT COUNT(*) FROM messages u
				WHERE u.recipient_id = $1 AND u.sender_id = l.counterpart_id AND u.seen = false) AS unread_count
		FROM latest l
		ORDER BY l.sent_at DESC, l.id DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.ListConversations")
	}
	defer rows.Close()

	summaries := []domain.ConversationSummary{}
	for rows.Next() {
		var s domain.ConversationSummary
		m := &s.LastMessage
		if err := rows.Scan(
			&s.CounterpartID, &m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.SentAt, &m.Seen,
			&s.UnreadCount,
		); err != nil {
			return nil, errors.Wrap(err, "messageRepo.ListConversations.Scan")
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "messageRepo.ListConversations.Rows")
	}
	return summaries, nil
}
