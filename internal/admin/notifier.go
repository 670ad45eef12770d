package admin

import (
	"context"
	"log/slog"

	"github.com/m3rciful/dmbot/core/logger"
)

// MessageSender delivers a Markdown message to a private chat.
type MessageSender interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

// Notifier messages every admin. Delivery is best effort: a failure for one
// admin is logged and does not stop the others.
type Notifier struct {
	rights *Rights
	sender MessageSender
	log    *slog.Logger
}

// NewNotifier returns a Notifier.
func NewNotifier(rights *Rights, sender MessageSender, log *slog.Logger) *Notifier {
	return &Notifier{rights: rights, sender: sender, log: log}
}

// Notify sends text to all admins and returns how many received it.
func (n *Notifier) Notify(ctx context.Context, text string) int {
	if n == nil || n.sender == nil {
		return 0
	}
	log := logger.Or(n.log, "admin")
	delivered := 0
	for _, id := range n.rights.IDs() {
		if err := n.sender.SendMarkdown(ctx, id, text); err != nil {
			logger.LogEvent(ctx, log, slog.LevelWarn, "admin.notify",
				slog.String("status", "fail"),
				slog.Int64("admin_id", id),
				slog.String("err", err.Error()),
			)
			continue
		}
		delivered++
	}
	return delivered
}
