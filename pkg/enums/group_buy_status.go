package enums

import "fmt"

// GroupBuyStatus tracks the lifecycle of a group buy.
type GroupBuyStatus string

const (
	GroupBuyStatusOpen       GroupBuyStatus = "open"
	GroupBuyStatusProcessing GroupBuyStatus = "processing"
	GroupBuyStatusClosed     GroupBuyStatus = "closed"
	GroupBuyStatusFulfilled  GroupBuyStatus = "fulfilled"
)

var validGroupBuyStatuses = []GroupBuyStatus{
	GroupBuyStatusOpen,
	GroupBuyStatusProcessing,
	GroupBuyStatusClosed,
	GroupBuyStatusFulfilled,
}

// legalGroupBuyTransitions is the allowed transition set. The only path into
// processing is supplier acceptance; closed and fulfilled are terminal.
var legalGroupBuyTransitions = map[GroupBuyStatus][]GroupBuyStatus{
	GroupBuyStatusOpen:       {GroupBuyStatusProcessing, GroupBuyStatusClosed},
	GroupBuyStatusProcessing: {GroupBuyStatusClosed, GroupBuyStatusFulfilled},
	GroupBuyStatusClosed:     {},
	GroupBuyStatusFulfilled:  {},
}

// String implements fmt.Stringer.
func (g GroupBuyStatus) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GroupBuyStatus.
func (g GroupBuyStatus) IsValid() bool {
	for _, candidate := range validGroupBuyStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from the status.
func (g GroupBuyStatus) IsTerminal() bool {
	return len(legalGroupBuyTransitions[g]) == 0 && g.IsValid()
}

// CanTransitionTo reports whether moving from g to next is a legal transition.
func (g GroupBuyStatus) CanTransitionTo(next GroupBuyStatus) bool {
	for _, candidate := range legalGroupBuyTransitions[g] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseGroupBuyStatus converts raw input into a GroupBuyStatus.
func ParseGroupBuyStatus(value string) (GroupBuyStatus, error) {
	for _, candidate := range validGroupBuyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid group buy status %q", value)
}
