package enums

import "fmt"

// NotificationKind labels the membership events surfaced to users.
type NotificationKind string

const (
	NotificationMembershipApproved NotificationKind = "membership_approved"
	NotificationMembershipRejected NotificationKind = "membership_rejected"
	NotificationMembershipBanned   NotificationKind = "membership_banned"
)

var validNotificationKinds = []NotificationKind{
	NotificationMembershipApproved,
	NotificationMembershipRejected,
	NotificationMembershipBanned,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
