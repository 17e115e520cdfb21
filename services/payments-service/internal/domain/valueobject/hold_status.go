package valueobject

import "fmt"

// HoldStatus is the lifecycle state of a hold.
type HoldStatus struct {
	value string
}

var (
	HoldStatusOpen     = HoldStatus{"OPEN"}
	HoldStatusReleased = HoldStatus{"RELEASED"}
	HoldStatusCaptured = HoldStatus{"CAPTURED"}
)

var validHoldStatuses = map[string]HoldStatus{
	"OPEN":     HoldStatusOpen,
	"RELEASED": HoldStatusReleased,
	"CAPTURED": HoldStatusCaptured,
}

// NewHoldStatus validates and creates a HoldStatus from a string.
func NewHoldStatus(s string) (HoldStatus, error) {
	if status, ok := validHoldStatuses[s]; ok {
		return status, nil
	}
	return HoldStatus{}, fmt.Errorf("invalid hold status: %q", s)
}

// String returns the string representation of the hold status.
func (s HoldStatus) String() string {
	return s.value
}

// IsTerminal returns true once the hold has been released or captured.
func (s HoldStatus) IsTerminal() bool {
	return s == HoldStatusReleased || s == HoldStatusCaptured
}

// IsZero returns true if the hold status is uninitialized.
func (s HoldStatus) IsZero() bool {
	return s.value == ""
}
