package main

import (
	"github.com/gin-gonic/gin"

	"github.com/peerhub/peerhub/internal/handlers"
	"github.com/peerhub/peerhub/internal/middleware"
)

func registerRoutes(r *gin.Engine, app *application) {
	r.GET("/health", handlers.Health)

	api := r.Group("/api")

	// Auth endpoints are rate limited per IP against credential stuffing.
	auth := api.Group("/auth", middleware.RateLimit(1, 5))
	{
		auth.POST("/register", app.authHandler.Register)
		auth.POST("/login", app.authHandler.Login)
	}

	// Browse routes work for anonymous visitors; the principal, when
	// present, only enriches the listing.
	browse := api.Group("", middleware.AuthOptional())
	{
		browse.GET("/projects", app.projectHandler.List)
		browse.GET("/projects/popular", app.projectHandler.Popular)
		browse.GET("/projects/categories", app.projectHandler.Categories)
		browse.GET("/projects/:id", app.projectHandler.Get)
		browse.GET("/projects/:id/members", app.membershipHandler.Members)
		browse.GET("/projects/:id/attachments/:kind", app.projectHandler.GetAttachment)
		browse.GET("/users/:userID/profile", app.profileHandler.Get)
	}

	authed := api.Group("", middleware.AuthRequired())
	{
		authed.GET("/auth/me", app.authHandler.Me)
		authed.POST("/auth/change-password", app.authHandler.ChangePassword)

		authed.GET("/dashboard", app.projectHandler.Dashboard)
		authed.GET("/profile", app.profileHandler.Me)
		authed.PUT("/profile", app.profileHandler.Update)
		authed.GET("/users/search", app.profileHandler.Search)

		authed.POST("/projects", app.projectHandler.Create)
		authed.PUT("/projects/:id", app.projectHandler.Update)
		authed.DELETE("/projects/:id", app.projectHandler.Delete)
		authed.POST("/projects/:id/upvote", app.projectHandler.ToggleUpvote)
		authed.POST("/projects/:id/attachments/:kind", app.projectHandler.SetAttachment)
		authed.DELETE("/projects/:id/attachments/:kind", app.projectHandler.DeleteAttachment)

		authed.POST("/projects/:id/join", app.membershipHandler.Request)
		authed.DELETE("/projects/:id/membership", app.membershipHandler.Leave)
		authed.GET("/projects/:id/requests", app.membershipHandler.Requests)
		authed.POST("/join-requests/:requestID/approve", app.membershipHandler.Approve)
		authed.POST("/join-requests/:requestID/deny", app.membershipHandler.Deny)

		authed.POST("/projects/:id/invitations", app.invitationHandler.Invite)
		authed.GET("/projects/:id/invitations", app.invitationHandler.ForProject)
		authed.GET("/invitations", app.invitationHandler.Mine)
		authed.POST("/invitations/:invitationID/respond", app.invitationHandler.Respond)

		authed.GET("/projects/:id/uploads", app.uploadHandler.List)
		authed.POST("/projects/:id/uploads", middleware.RateLimit(2, 10), app.uploadHandler.Create)
		authed.GET("/projects/:id/uploads/:uploadID", app.uploadHandler.Get)
		authed.GET("/projects/:id/uploads/:uploadID/transcription", app.uploadHandler.RefreshTranscription)
		authed.PATCH("/projects/:id/uploads/:uploadID", app.uploadHandler.Update)
		authed.DELETE("/projects/:id/uploads/:uploadID", app.uploadHandler.Delete)

		authed.GET("/uploads/:uploadID/prompts", app.promptHandler.List)
		authed.POST("/uploads/:uploadID/prompts", app.promptHandler.Create)
		authed.POST("/prompts/:promptID/responses", app.promptHandler.Respond)
		authed.DELETE("/prompts/:promptID", app.promptHandler.Delete)
		authed.DELETE("/prompt-responses/:responseID", app.promptHandler.DeleteResponse)

		authed.GET("/projects/:id/messages", app.messageHandler.List)
		authed.POST("/projects/:id/messages", middleware.RateLimit(5, 20), app.messageHandler.Create)
	}

	admin := api.Group("/admin", middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.GET("/logs", app.systemLogHandler.List)
	}
}
