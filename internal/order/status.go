package order

import "github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusProcessing      Status = "processing"
	StatusInTransit       Status = "in_transit"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
	StatusReturnRequested Status = "return_requested"
	StatusReturned        Status = "returned"
)

var allStatuses = []Status{
	StatusProcessing,
	StatusInTransit,
	StatusDelivered,
	StatusCancelled,
	StatusReturnRequested,
	StatusReturned,
}

func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func ParseStatus(v string) (Status, error) {
	for _, s := range allStatuses {
		if string(s) == v {
			return s, nil
		}
	}
	return "", apperr.New(apperr.ErrInvalidStatus, "Invalid status. Must be one of: %v", allStatuses)
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusReturned
}

// CanCancel reports whether a customer may cancel an order in this state.
func (s Status) CanCancel() bool {
	return s == StatusProcessing
}

// CanRequestReturn reports whether a customer may ask to return an order in
// this state. The delivery date and return window are checked separately.
func (s Status) CanRequestReturn() bool {
	return s == StatusDelivered
}

// AcceptsDiscount reports whether a discount may still be applied.
func (s Status) AcceptsDiscount() bool {
	return s != StatusDelivered
}
