package enums

import "fmt"

// MembershipDecision is a moderator's verdict on a pending join request.
type MembershipDecision string

const (
	MembershipDecisionApprove MembershipDecision = "approve"
	MembershipDecisionReject  MembershipDecision = "reject"
)

var validMembershipDecisions = []MembershipDecision{
	MembershipDecisionApprove,
	MembershipDecisionReject,
}

// String implements fmt.Stringer.
func (m MembershipDecision) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MembershipDecision.
func (m MembershipDecision) IsValid() bool {
	for _, candidate := range validMembershipDecisions {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMembershipDecision converts raw input into a MembershipDecision.
func ParseMembershipDecision(value string) (MembershipDecision, error) {
	for _, candidate := range validMembershipDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid membership decision %q", value)
}
