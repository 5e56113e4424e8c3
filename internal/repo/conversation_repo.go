package repo

import (
	"context"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/serenity-spa/spachat/internal/model"
	"github.com/serenity-spa/spachat/internal/pkg/dbutil"
)

type ConversationRepo struct {
	db *sqlx.DB
}

func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Create inserts a conversation row. Re-creating an existing id is not an
// error: a caller replaying its conversation_id must not produce duplicates.
func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	data := map[string]interface{}{
		"id":    conv.ID,
		"ctime": conv.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("conversations", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return nil
		}
		return err
	}
	return nil
}

// ListActiveSince returns ids of conversations with at least one message at
// or after cutoff.
func (r *ConversationRepo) ListActiveSince(ctx context.Context, cutoff int64) ([]string, error) {
	const query = `
		SELECT DISTINCT conversation_id
		FROM messages
		WHERE ctime >= $1
	`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
