package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/middleware"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
	"go.uber.org/zap"
)

// RouterConfig carries everything the HTTP routes depend on.
type RouterConfig struct {
	Sessions   sessions.Store
	Logger     *zap.Logger
	Calls      middleware.CallObserver
	Metrics    http.Handler
	Authorizer services.Authorizer

	AuthService      *services.AuthService
	WorkspaceService *services.WorkspaceService
	InviteService    *services.InviteService
	ProjectService   *services.ProjectService

	// WorkspacesEnabled gates every workspace route.
	WorkspacesEnabled bool
}

// NewRouter builds the API routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(cfg.Logger))
	if cfg.Calls != nil {
		r.Use(middleware.ObserveCalls(cfg.Calls))
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, cfg.Sessions))

	authHandler := NewAuthHandler(cfg.AuthService)
	workspaceHandler := NewWorkspaceHandler(cfg.WorkspaceService)
	inviteHandler := NewInviteHandler(cfg.InviteService)
	projectHandler := NewProjectHandler(cfg.ProjectService, cfg.Authorizer)

	workspaceRole := func(min models.Role) gin.HandlerFunc {
		return middleware.RequireWorkspaceRole(cfg.WorkspaceService, cfg.Authorizer, min)
	}
	projectRole := func(min models.Role) gin.HandlerFunc {
		return middleware.RequireProjectRole(cfg.ProjectService, cfg.Authorizer, min)
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Workspace API is running",
		})
	})
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/verify-email", authHandler.VerifyEmail)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Current user routes (protected)
		me := api.Group("/me")
		me.Use(middleware.RequireAuth())
		{
			me.GET("/emails", authHandler.ListEmails)
			me.POST("/emails", authHandler.AddEmail)
			me.GET("/workspaces", middleware.RequireFeature(cfg.WorkspacesEnabled), workspaceHandler.ListWorkspaces)
			me.GET("/discoverable-workspaces", middleware.RequireFeature(cfg.WorkspacesEnabled), workspaceHandler.ListDiscoverableWorkspaces)
			me.GET("/workspace-invites", middleware.RequireFeature(cfg.WorkspacesEnabled), inviteHandler.ListMyWorkspaceInvites)
		}

		invites := api.Group("/invites")
		invites.Use(middleware.RequireAuth())
		{
			invites.POST("/finalize", inviteHandler.Finalize)
		}

		// Server invites (server admins, checked by the invite service)
		server := api.Group("/server")
		server.Use(middleware.RequireAuth())
		{
			server.POST("/invites", inviteHandler.Create(models.ResourceServer))
			server.POST("/invites/batch", inviteHandler.BatchCreate(models.ResourceServer))
			server.POST("/invites/:invite_id/resend", inviteHandler.Resend(models.ResourceServer))
			server.DELETE("/invites/:invite_id", inviteHandler.Cancel(models.ResourceServer))
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireAuth(), middleware.RequireServerRole(cfg.Authorizer, models.RoleServerAdmin))
		{
			admin.GET("/workspaces", middleware.RequireFeature(cfg.WorkspacesEnabled), workspaceHandler.AdminListWorkspaces)
		}

		// Workspace routes (protected)
		workspaces := api.Group("/workspaces")
		workspaces.Use(middleware.RequireFeature(cfg.WorkspacesEnabled), middleware.RequireAuth())
		{
			workspaces.POST("", workspaceHandler.CreateWorkspace)
			workspaces.GET("/:id", workspaceRole(models.RoleWorkspaceGuest), workspaceHandler.GetWorkspace)
			workspaces.PATCH("/:id", workspaceRole(models.RoleWorkspaceAdmin), workspaceHandler.UpdateWorkspace)
			workspaces.DELETE("/:id", workspaceRole(models.RoleWorkspaceAdmin), workspaceHandler.DeleteWorkspace)
			workspaces.POST("/:id/join", workspaceHandler.JoinWorkspace)
			workspaces.POST("/:id/leave", workspaceRole(models.RoleWorkspaceGuest), workspaceHandler.LeaveWorkspace)

			workspaces.GET("/:id/collaborators", workspaceRole(models.RoleWorkspaceGuest), workspaceHandler.ListCollaborators)
			workspaces.PUT("/:id/collaborators/:user_id", workspaceRole(models.RoleWorkspaceAdmin), workspaceHandler.UpdateCollaboratorRole)
			workspaces.DELETE("/:id/collaborators/:user_id", workspaceRole(models.RoleWorkspaceAdmin), workspaceHandler.RemoveCollaborator)

			workspaces.GET("/:id/domains", workspaceRole(models.RoleWorkspaceMember), workspaceHandler.ListDomains)
			workspaces.POST("/:id/domains", workspaceRole(models.RoleWorkspaceAdmin), workspaceHandler.AddDomain)
			workspaces.DELETE("/:id/domains/:domain_id", workspaceRole(models.RoleWorkspaceAdmin), workspaceHandler.DeleteDomain)

			workspaces.GET("/:id/projects", workspaceRole(models.RoleWorkspaceGuest), projectHandler.ListWorkspaceProjects)

			workspaces.GET("/:id/invites", workspaceRole(models.RoleWorkspaceAdmin), inviteHandler.ListPendingWorkspaceInvites)
			workspaces.GET("/:id/invites/mine", inviteHandler.GetMyWorkspaceInvite)
			workspaces.POST("/:id/invites", inviteHandler.Create(models.ResourceWorkspace))
			workspaces.POST("/:id/invites/batch", inviteHandler.BatchCreate(models.ResourceWorkspace))
			workspaces.POST("/:id/invites/:invite_id/resend", inviteHandler.Resend(models.ResourceWorkspace))
			workspaces.DELETE("/:id/invites/:invite_id", inviteHandler.Cancel(models.ResourceWorkspace))
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectRole(models.RoleStreamReviewer), projectHandler.GetProject)
			projects.DELETE("/:id", projectRole(models.RoleStreamOwner), projectHandler.DeleteProject)
			projects.DELETE("/:id/collaborators/:user_id", projectRole(models.RoleStreamOwner), projectHandler.RevokeCollaborator)

			projects.POST("/:id/invites", inviteHandler.Create(models.ResourceProject))
			projects.POST("/:id/invites/batch", inviteHandler.BatchCreate(models.ResourceProject))
			projects.POST("/:id/invites/:invite_id/resend", inviteHandler.Resend(models.ResourceProject))
			projects.DELETE("/:id/invites/:invite_id", inviteHandler.Cancel(models.ResourceProject))
		}
	}

	return r
}
