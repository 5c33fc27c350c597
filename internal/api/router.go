package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/app"
	iauth "github.com/oversightlab/missiondesk/internal/auth"
	"github.com/oversightlab/missiondesk/internal/handlers"
	"github.com/oversightlab/missiondesk/internal/middleware"
	"github.com/oversightlab/missiondesk/internal/permissions"
	"github.com/oversightlab/missiondesk/internal/services"
	"github.com/oversightlab/missiondesk/internal/storage"
	"github.com/oversightlab/missiondesk/internal/workflow"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, sessions *iauth.SessionService, store storage.BlobStore, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if store == nil {
		return nil, fmt.Errorf("blob store must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	userSvc, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	missionSvc, err := services.NewMissionService(db, store)
	if err != nil {
		return nil, err
	}
	projectSvc, err := services.NewProjectService(db)
	if err != nil {
		return nil, err
	}
	companySvc, err := services.NewCompanyService(db)
	if err != nil {
		return nil, err
	}
	orgSvc, err := services.NewOrganizationService(db)
	if err != nil {
		return nil, err
	}
	invitationSvc, err := services.NewInvitationService(db)
	if err != nil {
		return nil, err
	}
	draftSvc, err := services.NewDraftService(db)
	if err != nil {
		return nil, err
	}
	engine, err := workflow.NewEngine(db)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	// Public endpoints
	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if fs, ok := store.(*storage.FilesystemStore); ok {
		r.Static(fs.BaseURL(), fs.Root())
	}

	authHandler := handlers.NewAuthHandler(userSvc, sessions)
	missionHandler := handlers.NewMissionHandler(missionSvc, userSvc, engine)
	projectHandler := handlers.NewProjectHandler(projectSvc)
	companyHandler := handlers.NewCompanyHandler(companySvc)
	orgHandler := handlers.NewOrganizationHandler(orgSvc, invitationSvc)
	userHandler := handlers.NewUserHandler(userSvc)
	draftHandler := handlers.NewDraftHandler(draftSvc)

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Invitation acceptance is public: the invitee may not have an account yet.
	r.POST("/api/invitations/accept", orgHandler.AcceptInvitation)

	// Protected routes
	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth, middleware.RouteGate())

	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	api.PUT("/profile", userHandler.UpdateProfile)
	api.POST("/profile/password", userHandler.ChangePassword)

	missions := api.Group("/missions")
	{
		missions.GET("", middleware.RequireCapability(permissions.CapMissionView), missionHandler.List)
		missions.GET("/:id", middleware.RequireCapability(permissions.CapMissionView), missionHandler.Get)
		missions.POST("", middleware.RequireCapability(permissions.CapMissionCreate), missionHandler.Create)
		missions.PUT("/:id", middleware.RequireCapability(permissions.CapMissionEdit), missionHandler.Update)
		missions.DELETE("/:id", middleware.RequireCapability(permissions.CapMissionEdit), missionHandler.Delete)

		missions.POST("/:id/send", middleware.RequireCapability(permissions.CapMissionSend), missionHandler.Send)
		missions.POST("/:id/validate", middleware.RequireCapability(permissions.CapMissionReview), missionHandler.Validate)
		missions.POST("/:id/review", middleware.RequireCapability(permissions.CapMissionReview), missionHandler.Review)
		missions.POST("/:id/reopen", middleware.RequireCapability(permissions.CapMissionSend), missionHandler.Reopen)
		missions.PATCH("/:id/status", middleware.RequireCapability(permissions.CapMissionView), missionHandler.SetStatus)
	}

	api.GET("/gallery", middleware.RequireCapability(permissions.CapGalleryView), missionHandler.Gallery)

	projects := api.Group("/projects")
	{
		projects.GET("", middleware.RequireCapability(permissions.CapProjectView), projectHandler.List)
		projects.GET("/:id", middleware.RequireCapability(permissions.CapProjectView), projectHandler.Get)
		projects.POST("", middleware.RequireCapability(permissions.CapProjectManage), projectHandler.Create)
		projects.PUT("/:id", middleware.RequireCapability(permissions.CapProjectManage), projectHandler.Update)
		projects.DELETE("/:id", middleware.RequireCapability(permissions.CapProjectManage), projectHandler.Delete)
	}

	companies := api.Group("/companies")
	{
		companies.GET("", middleware.RequireCapability(permissions.CapCompanyView), companyHandler.List)
		companies.GET("/:id", middleware.RequireCapability(permissions.CapCompanyView), companyHandler.Get)
		companies.POST("", middleware.RequireCapability(permissions.CapCompanyManage), companyHandler.Create)
		companies.PUT("/:id", middleware.RequireCapability(permissions.CapCompanyManage), companyHandler.Update)
		companies.DELETE("/:id", middleware.RequireCapability(permissions.CapCompanyManage), companyHandler.Delete)
	}

	orgs := api.Group("/orgs")
	orgs.Use(middleware.RequireCapability(permissions.CapOrgManage))
	{
		orgs.GET("", orgHandler.List)
		orgs.GET("/:id", orgHandler.Get)
		orgs.POST("", orgHandler.Create)
		orgs.PUT("/:id", orgHandler.Update)
		orgs.DELETE("/:id", orgHandler.Delete)

		orgs.POST("/:id/members", orgHandler.AddMember)
		orgs.PUT("/:id/members/:userID", orgHandler.UpdateMemberRole)
		orgs.DELETE("/:id/members/:userID", orgHandler.RemoveMember)

		orgs.POST("/:id/invitations", orgHandler.CreateInvitation)
		orgs.GET("/:id/invitations", orgHandler.ListInvitations)
		orgs.DELETE("/:id/invitations/:invitationID", orgHandler.CancelInvitation)
	}

	users := api.Group("/users")
	users.Use(middleware.RequireCapability(permissions.CapUserManage))
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", userHandler.Create)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	drafts := api.Group("/drafts")
	drafts.Use(middleware.RequireCapability(permissions.CapMissionCreate))
	{
		drafts.GET("/:formType", draftHandler.Load)
		drafts.PUT("/:formType", draftHandler.Save)
		drafts.DELETE("/:formType", draftHandler.Clear)
	}

	return r, nil
}
