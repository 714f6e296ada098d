package enums

import "fmt"

// VoteDirection is the polarity of a vote on a post or comment.
type VoteDirection string

const (
	VoteDirectionUp   VoteDirection = "upvote"
	VoteDirectionDown VoteDirection = "downvote"
)

var validVoteDirections = []VoteDirection{
	VoteDirectionUp,
	VoteDirectionDown,
}

// String implements fmt.Stringer.
func (v VoteDirection) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoteDirection.
func (v VoteDirection) IsValid() bool {
	for _, candidate := range validVoteDirections {
		if candidate == v {
			return true
		}
	}
	return false
}

// Opposite returns the flipped direction.
func (v VoteDirection) Opposite() VoteDirection {
	if v == VoteDirectionUp {
		return VoteDirectionDown
	}
	return VoteDirectionUp
}

// ParseVoteDirection converts raw input into a VoteDirection.
func ParseVoteDirection(value string) (VoteDirection, error) {
	for _, candidate := range validVoteDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vote direction %q", value)
}
