package enums

import "fmt"

// VoteTargetType discriminates what a vote row points at. Modeling the target
// as (type, id) keeps handling of both kinds exhaustive instead of leaning on
// a pair of nullable foreign keys.
type VoteTargetType string

const (
	VoteTargetPost    VoteTargetType = "post"
	VoteTargetComment VoteTargetType = "comment"
)

var validVoteTargetTypes = []VoteTargetType{
	VoteTargetPost,
	VoteTargetComment,
}

// String implements fmt.Stringer.
func (v VoteTargetType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoteTargetType.
func (v VoteTargetType) IsValid() bool {
	for _, candidate := range validVoteTargetTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVoteTargetType converts raw input into a VoteTargetType.
func ParseVoteTargetType(value string) (VoteTargetType, error) {
	for _, candidate := range validVoteTargetTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vote target type %q", value)
}
