package notify

import (
	"time"

	"github.com/bookhive/bookhive/types"
)

// Broadcaster builds the normalized payload for each domain event and
// hands it to the outbox. Every method is fire-and-forget: it never
// returns an error and never fails the request that triggered it.
type Broadcaster struct {
	outbox *Outbox
	logger types.Logger
}

// NewBroadcaster creates a Broadcaster over the given outbox.
func NewBroadcaster(outbox *Outbox, logger types.Logger) *Broadcaster {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Broadcaster{outbox: outbox, logger: logger}
}

// BookAdded announces a newly listed book to the admin room.
func (b *Broadcaster) BookAdded(book types.Book) {
	b.emit(types.EventBookNew, map[string]any{
		"bookId":  book.ID,
		"title":   book.Title,
		"author":  book.Author,
		"ownerId": book.OwnerID,
		"price":   book.Price,
	})
}

// ReportFiled announces a new abuse report.
func (b *Broadcaster) ReportFiled(report types.Report) {
	b.emit(types.EventReportNew, map[string]any{
		"reportId":   report.ID,
		"reporterId": report.ReporterID,
		"targetType": report.TargetType,
		"targetId":   report.TargetID,
		"reason":     report.Reason,
	})
}

// WithdrawalUpdated announces a status change on a withdrawal request.
func (b *Broadcaster) WithdrawalUpdated(withdrawalID, userID, status string, amount float64) {
	b.emit(types.EventWithdrawalUpdate, map[string]any{
		"withdrawalId": withdrawalID,
		"userId":       userID,
		"status":       status,
		"amount":       amount,
	})
}

// WalletTransaction announces a wallet credit or debit.
func (b *Broadcaster) WalletTransaction(userID, kind string, amount float64) {
	b.emit(types.EventWalletTransaction, map[string]any{
		"userId": userID,
		"kind":   kind,
		"amount": amount,
	})
}

// VersionReleased announces a new release note.
func (b *Broadcaster) VersionReleased(n types.VersionNotification) {
	b.emit(types.EventVersionNew, map[string]any{
		"notificationId": n.ID,
		"version":        n.Version,
		"title":          n.Title,
		"type":           n.Type,
		"priority":       n.Priority,
	})
}

// emit stamps the payload and queues the event. With no outbox wired
// (push channel uninitialized) it warns and no-ops.
func (b *Broadcaster) emit(name string, payload map[string]any) {
	now := time.Now().UTC()
	payload["timestamp"] = now.Format(time.RFC3339)

	if b == nil || b.outbox == nil {
		if b != nil {
			b.logger.Warn("push channel not initialized, event skipped", "event", name)
		}
		return
	}

	b.outbox.Enqueue(types.NotificationEvent{
		Name:      name,
		Payload:   payload,
		Timestamp: now,
	})
}
