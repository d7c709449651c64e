package order

// Status is the order lifecycle state.
type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusPreparing           Status = "preparing"
	StatusReady               Status = "ready"
	StatusDelivering          Status = "delivering"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"
)

// statusRank orders the forward progression. Cancelled sits outside the
// progression and is only reachable through Cancel.
var statusRank = map[Status]int{
	StatusPendingConfirmation: 0,
	StatusConfirmed:           1,
	StatusPreparing:           2,
	StatusReady:               3,
	StatusDelivering:          4,
	StatusCompleted:           5,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanAdvanceTo reports whether a status update from s to target is a legal
// forward move. Cancellation and confirmation have dedicated operations and
// are never reachable through a plain status update.
func (s Status) CanAdvanceTo(target Status) bool {
	if s.Terminal() {
		return false
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	return to > from
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s Status) Cancellable() bool {
	return !s.Terminal()
}
