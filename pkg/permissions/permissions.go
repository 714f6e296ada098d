package permissions

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Flag names one community-scoped capability. Roles carry a flat set of flags;
// a member's effective permissions are the union across their roles. There is
// no deny flag and no inheritance between roles.
type Flag string

const (
	ViewChannels    Flag = "view_channels"
	ManageChannels  Flag = "manage_channels"
	ManageRoles     Flag = "manage_roles"
	ManageCommunity Flag = "manage_community"

	KickMembers   Flag = "kick_members"
	BanMembers    Flag = "ban_members"
	InviteMembers Flag = "invite_members"

	SendMessages   Flag = "send_messages"
	EmbedLinks     Flag = "embed_links"
	AttachFiles    Flag = "attach_files"
	AddReactions   Flag = "add_reactions"
	ManageMessages Flag = "manage_messages"

	Connect       Flag = "connect"
	Speak         Flag = "speak"
	Stream        Flag = "stream"
	MuteMembers   Flag = "mute_members"
	DeafenMembers Flag = "deafen_members"
	MoveMembers   Flag = "move_members"

	CreatePosts    Flag = "create_posts"
	ManagePosts    Flag = "manage_posts"
	CreateComments Flag = "create_comments"
	CastVotes      Flag = "cast_votes"
)

var allFlags = []Flag{
	ViewChannels, ManageChannels, ManageRoles, ManageCommunity,
	KickMembers, BanMembers, InviteMembers,
	SendMessages, EmbedLinks, AttachFiles, AddReactions, ManageMessages,
	Connect, Speak, Stream, MuteMembers, DeafenMembers, MoveMembers,
	CreatePosts, ManagePosts, CreateComments, CastVotes,
}

// AllFlags returns every known flag in a stable order.
func AllFlags() []Flag {
	flags := make([]Flag, len(allFlags))
	copy(flags, allFlags)
	return flags
}

// IsValid reports whether the value is a known Flag.
func (f Flag) IsValid() bool {
	for _, candidate := range allFlags {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFlag converts raw input into a Flag.
func ParseFlag(value string) (Flag, error) {
	for _, candidate := range allFlags {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission flag %q", value)
}

// Set is a flag-to-granted map persisted as a jsonb column on role rows.
// Absent flags are treated as false.
type Set map[Flag]bool

// NewSet grants exactly the provided flags.
func NewSet(flags ...Flag) Set {
	set := Set{}
	for _, flag := range flags {
		set[flag] = true
	}
	return set
}

// AllGranted returns a Set with every known flag granted.
func AllGranted() Set {
	return NewSet(allFlags...)
}

// Has reports whether the flag is granted.
func (s Set) Has(flag Flag) bool {
	return s != nil && s[flag]
}

// Union merges other into a copy of s. Granted always wins.
func (s Set) Union(other Set) Set {
	merged := Set{}
	for flag, granted := range s {
		if granted {
			merged[flag] = true
		}
	}
	for flag, granted := range other {
		if granted {
			merged[flag] = true
		}
	}
	return merged
}

// Value implements driver.Valuer for jsonb storage.
func (s Set) Value() (driver.Value, error) {
	if s == nil {
		s = Set{}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal permission set: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for jsonb storage.
func (s *Set) Scan(src any) error {
	if src == nil {
		*s = Set{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported permission set source %T", src)
	}

	decoded := Set{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("unmarshal permission set: %w", err)
	}
	*s = decoded
	return nil
}
