package notify

import (
	"context"

	"github.com/Spok95/parkaro/internal/infra/db"
)

// Journal сохраняет уведомления в notification_logs.
type Journal struct{ db db.Querier }

func NewJournal(q db.Querier) *Journal { return &Journal{db: q} }

func (j *Journal) Notify(ctx context.Context, n Notification) error {
	ch := n.Channel
	if ch == "" {
		ch = ChannelInApp
	}
	_, err := j.db.Exec(ctx, `
		INSERT INTO notification_logs (user_id, type, message, channel)
		VALUES ($1,$2,$3,$4)
	`, n.UserID, n.Type, n.Message, ch)
	return err
}
