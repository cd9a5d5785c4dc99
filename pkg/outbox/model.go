package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Event is one print outcome awaiting dispatch. Rows are written in
// the same transaction that flags the order printed, so an outcome is
// never recorded without its event and vice versa.
type Event struct {
	ID          int64
	AggregateID string
	Type        string
	Payload     []byte
	Traceparent string
	CreatedAt   time.Time
	Status      Status
	RetryCount  int
	LastError   *string
}
