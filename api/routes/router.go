package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davazquez/commonroom-backend/api/controllers"
	"github.com/davazquez/commonroom-backend/api/middleware"
	"github.com/davazquez/commonroom-backend/internal/access"
	"github.com/davazquez/commonroom-backend/internal/communities"
	"github.com/davazquez/commonroom-backend/internal/memberships"
	"github.com/davazquez/commonroom-backend/internal/notifications"
	"github.com/davazquez/commonroom-backend/internal/posts"
	"github.com/davazquez/commonroom-backend/internal/roles"
	"github.com/davazquez/commonroom-backend/internal/votes"
	"github.com/davazquez/commonroom-backend/pkg/config"
	"github.com/davazquez/commonroom-backend/pkg/logger"
	"github.com/davazquez/commonroom-backend/pkg/permissions"
)

// Pinger is the health-check surface the router needs from backing stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the route table wires together.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    Pinger
	Redis Pinger

	Users middleware.UserResolver
	Gate  *access.Gate

	Communities   communities.Service
	Memberships   memberships.Service
	Roles         roles.Service
	Posts         posts.Service
	Votes         votes.Service
	Notifications notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/identity/session", controllers.IdentitySession(cfg.JWT, deps.Users, logg))

		// Reads that tolerate anonymous callers. The access gate downstream
		// still rejects private-community content for non-members.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, deps.Users, logg))

			r.Get("/communities", controllers.ListCommunities(deps.Communities, logg))
			r.Get("/communities/by-slug/{slug}", controllers.GetCommunityBySlug(deps.Communities, logg))
			r.Get("/communities/{communityId}", controllers.GetCommunity(deps.Communities, logg))
			r.Get("/communities/{communityId}/posts", controllers.ListPosts(deps.Posts, logg))
			r.Get("/posts/{postId}", controllers.GetPost(deps.Posts, logg))
			r.Get("/posts/{postId}/comments", controllers.ListComments(deps.Posts, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Users, logg))

			r.Post("/communities", controllers.CreateCommunity(deps.Communities, logg))
			r.Delete("/communities/{communityId}", controllers.DeleteCommunity(deps.Communities, logg))

			r.Post("/communities/{communityId}/join", controllers.JoinCommunity(deps.Memberships, logg))
			r.Get("/communities/{communityId}/membership", controllers.GetOwnMembership(deps.Memberships, logg))
			r.Delete("/communities/{communityId}/membership", controllers.LeaveCommunity(deps.Memberships, logg))
			r.Get("/communities/{communityId}/membership/pending", controllers.ListPendingMemberships(deps.Memberships, logg))
			r.Post("/communities/{communityId}/membership/{membershipId}/decision", controllers.DecideMembership(deps.Memberships, logg))
			r.Post("/communities/{communityId}/members/{userId}/ban", controllers.BanMember(deps.Memberships, logg))

			r.Post("/communities/{communityId}/moderators/{userId}", controllers.AddModerator(deps.Communities, logg))
			r.Delete("/communities/{communityId}/moderators/{userId}", controllers.RemoveModerator(deps.Communities, logg))

			manageRoles := middleware.RequireCommunityPermission(deps.Gate, permissions.ManageRoles, logg)
			r.With(manageRoles).Get("/communities/{communityId}/roles", controllers.ListRoles(deps.Roles, logg))
			r.With(manageRoles).Post("/communities/{communityId}/roles/{roleId}/memberships/{membershipId}", controllers.AttachRole(deps.Roles, logg))
			r.With(manageRoles).Delete("/communities/{communityId}/roles/{roleId}/memberships/{membershipId}", controllers.DetachRole(deps.Roles, logg))

			r.Post("/communities/{communityId}/posts", controllers.CreatePost(deps.Posts, logg))
			r.Delete("/posts/{postId}", controllers.DeletePost(deps.Posts, logg))
			r.Post("/posts/{postId}/comments", controllers.CreateComment(deps.Posts, logg))

			r.Post("/votes", controllers.CastVote(deps.Votes, logg))
			r.Delete("/votes/{targetType}/{targetId}", controllers.RetractVote(deps.Votes, logg))

			r.Get("/notifications", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	return r
}
