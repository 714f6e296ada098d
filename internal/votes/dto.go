package votes

// CastVoteInput carries one vote from the wire.
type CastVoteInput struct {
	TargetType string `json:"targetType" validate:"required,oneof=post comment"`
	TargetID   string `json:"targetId" validate:"required,uuid"`
	Direction  string `json:"direction" validate:"required,oneof=upvote downvote"`
}

// RetractVoteInput names the target whose vote is withdrawn.
type RetractVoteInput struct {
	TargetType string `json:"targetType" validate:"required,oneof=post comment"`
	TargetID   string `json:"targetId" validate:"required,uuid"`
}

// TotalsDTO is the target's counter state after the operation.
type TotalsDTO struct {
	UpvoteCount   int `json:"upvoteCount"`
	DownvoteCount int `json:"downvoteCount"`
	Score         int `json:"score"`
}

func totals(up, down int) TotalsDTO {
	return TotalsDTO{
		UpvoteCount:   up,
		DownvoteCount: down,
		Score:         up - down,
	}
}
