package booking

import "fmt"

// Status represents the current state of a booking request in its lifecycle.
type Status string

const (
	StatusNew            Status = "new"
	StatusInquiring      Status = "inquiring"
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusConfirmed      Status = "confirmed"
	StatusRejected       Status = "rejected"
	StatusCancelled      Status = "cancelled"
)

// statusCount is the number of statuses. Every per-status table below is a
// fixed-size array checked against it, so adding a status without extending
// the tables fails to compile.
const statusCount = 7

// AllStatuses lists every status in lifecycle order.
var AllStatuses = [...]Status{
	StatusNew,
	StatusInquiring,
	StatusPendingPayment,
	StatusPaid,
	StatusConfirmed,
	StatusRejected,
	StatusCancelled,
}

var labelsEN = [...]string{
	"New",
	"Inquiring",
	"Pending payment",
	"Paid",
	"Confirmed",
	"Rejected",
	"Cancelled",
}

var labelsKO = [...]string{
	"신규",
	"문의중",
	"입금대기",
	"결제완료",
	"예약확정",
	"예약불가",
	"예약취소",
}

// Compile-time length checks: a negative or out-of-range constant index is a
// build error.
var (
	_ = [1]struct{}{}[len(AllStatuses)-statusCount]
	_ = [1]struct{}{}[len(labelsEN)-statusCount]
	_ = [1]struct{}{}[len(labelsKO)-statusCount]
)

// validTransitions defines the state machine for booking request status.
var validTransitions = map[Status][]Status{
	StatusNew:            {StatusInquiring, StatusPendingPayment, StatusConfirmed, StatusRejected, StatusCancelled},
	StatusInquiring:      {StatusPendingPayment, StatusConfirmed, StatusRejected, StatusCancelled},
	StatusPendingPayment: {StatusPaid, StatusConfirmed, StatusRejected, StatusCancelled},
	StatusPaid:           {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusCancelled},
	StatusRejected:       {},
	StatusCancelled:      {},
}

func (s Status) ordinal() (int, bool) {
	for i, st := range AllStatuses {
		if st == s {
			return i, true
		}
	}
	return 0, false
}

// IsValid returns true if the status is a recognized booking status.
func (s Status) IsValid() bool {
	_, ok := s.ordinal()
	return ok
}

// CanTransitionTo returns true if the graph has an edge from s to target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Label returns the English display label.
func (s Status) Label() string {
	i, ok := s.ordinal()
	if !ok {
		return string(s)
	}
	return labelsEN[i]
}

// LabelKO returns the Korean display label used by the storefront.
func (s Status) LabelKO() string {
	i, ok := s.ordinal()
	if !ok {
		return string(s)
	}
	return labelsKO[i]
}

// String returns the wire representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
