package models

import (
	"time"

	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/google/uuid"
)

// Vote is one ledger row per (voter, target). The composite unique index
// serializes concurrent votes from the same user on the same target down to a
// single row; direction changes mutate this row rather than inserting another.
type Vote struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VoterID    uuid.UUID            `gorm:"column:voter_id;type:uuid;not null;uniqueIndex:uq_vote_voter_target"`
	TargetType enums.VoteTargetType `gorm:"column:target_type;not null;uniqueIndex:uq_vote_voter_target"`
	TargetID   uuid.UUID            `gorm:"column:target_id;type:uuid;not null;uniqueIndex:uq_vote_voter_target"`
	Direction  enums.VoteDirection  `gorm:"column:direction;not null"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
