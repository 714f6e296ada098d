package roles

import (
	"github.com/davazquez/commonroom-backend/pkg/permissions"
)

// RoleSeed describes one of the roles stamped out when a community is created.
type RoleSeed struct {
	Name        string
	Color       string
	Position    int
	IsDefault   bool
	Permissions permissions.Set
}

const (
	DefaultAdminRole     = "Admin"
	DefaultModeratorRole = "Moderator"
	DefaultMemberRole    = "Member"
)

// DefaultSeeds returns the three-role batch every new community starts with:
// Admin (everything), Moderator (member and message management), Member
// (baseline participation, marked default).
func DefaultSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Name:        DefaultAdminRole,
			Color:       "#e74c3c",
			Position:    3,
			Permissions: permissions.AllGranted(),
		},
		{
			Name:     DefaultModeratorRole,
			Color:    "#2ecc71",
			Position: 2,
			Permissions: permissions.NewSet(
				permissions.ViewChannels,
				permissions.KickMembers,
				permissions.BanMembers,
				permissions.InviteMembers,
				permissions.SendMessages,
				permissions.EmbedLinks,
				permissions.AttachFiles,
				permissions.AddReactions,
				permissions.ManageMessages,
				permissions.Connect,
				permissions.Speak,
				permissions.Stream,
				permissions.MuteMembers,
				permissions.DeafenMembers,
				permissions.MoveMembers,
				permissions.CreatePosts,
				permissions.ManagePosts,
				permissions.CreateComments,
				permissions.CastVotes,
			),
		},
		{
			Name:      DefaultMemberRole,
			Color:     "#95a5a6",
			Position:  1,
			IsDefault: true,
			Permissions: permissions.NewSet(
				permissions.ViewChannels,
				permissions.SendMessages,
				permissions.EmbedLinks,
				permissions.AttachFiles,
				permissions.AddReactions,
				permissions.Connect,
				permissions.Speak,
				permissions.CreatePosts,
				permissions.CreateComments,
				permissions.CastVotes,
			),
		},
	}
}
