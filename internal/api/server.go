package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campus-portal/event-portal-api/docs"
	v1 "github.com/campus-portal/event-portal-api/internal/api/handler/v1"
	"github.com/campus-portal/event-portal-api/internal/api/middleware"
	"github.com/campus-portal/event-portal-api/internal/config"
	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/metrics"
	"github.com/campus-portal/event-portal-api/internal/realtime"
	"github.com/campus-portal/event-portal-api/internal/repository"
	"github.com/campus-portal/event-portal-api/internal/repository/dao"
	"github.com/campus-portal/event-portal-api/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine

	// CORS picks up allowed_cors_domains changes without a restart.
	CORS *middleware.CORSPolicy
	// Registrations is shared with the counter reconciler.
	Registrations *service.RegistrationService

	hub *realtime.Hub
}

type repositories struct {
	users         *repository.UserRepository
	events        *repository.EventRepository
	registrations *repository.RegistrationRepository
}

func newRepositories(db *gorm.DB) repositories {
	return repositories{
		users:         repository.NewUserRepository(dao.NewUserDAO(db)),
		events:        repository.NewEventRepository(dao.NewEventDAO(db)),
		registrations: repository.NewRegistrationRepository(dao.NewRegistrationDAO(db)),
	}
}

// NewServer wires every layer on top of db. hub receives the real-time
// notifications and serves /ws.
func NewServer(conf *config.AppConfig, db *gorm.DB, hub *realtime.Hub) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
		CORS:   middleware.NewCORSPolicy(conf.API.AllowedCORSDomains),
		hub:    hub,
	}

	s.MountMiddlewares()

	repos := newRepositories(db)
	userSvc := service.NewUserService(repos.users)
	s.Registrations = service.NewRegistrationService(repos.registrations, repos.events, hub, conf.Registration.CancellationCutoff)

	authenticator := middleware.NewAuthenticator(conf.API.JWTSigningKey, userSvc)

	s.MountHandlers(
		authenticator,
		s.initAuthHandler(repos),
		v1.NewUserHandler(userSvc),
		s.initEventHandler(repos),
		v1.NewRegistrationHandler(s.Registrations),
		s.initHealthHandler(db),
	)

	return s
}

func (s *Server) initAuthHandler(repos repositories) *v1.AuthHandler {
	svc := service.NewAuthService(repos.users)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initEventHandler(repos repositories) *v1.EventHandler {
	svc := service.NewEventService(repos.events, repos.registrations, s.hub)
	handler := v1.NewEventHandler(svc)

	return handler
}

func (s *Server) initHealthHandler(db *gorm.DB) *v1.HealthHandler {
	sqlDB, err := db.DB()
	if err != nil {
		zap.L().Warn("health checks will not ping the database", zap.Error(err))
		return v1.NewHealthHandler(nil)
	}

	return v1.NewHealthHandler(sqlDB)
}

func (s *Server) MountMiddlewares() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.RequestLogger())
	s.Router.Use(metrics.Middleware())
	s.Router.Use(s.CORS.Handler())
}

func (s *Server) MountHandlers(
	authenticator *middleware.Authenticator,
	authHandler *v1.AuthHandler,
	userHandler *v1.UserHandler,
	eventHandler *v1.EventHandler,
	registrationHandler *v1.RegistrationHandler,
	healthHandler *v1.HealthHandler,
) {
	const basePath = "/api"

	rl := s.Config.RateLimit
	authLimiter := middleware.NewAuthLimiter(rl.AuthAttempts, rl.AuthWindow, rl.MaxKeys)
	publicLimiter := middleware.NewPublicLimiter(rl.PublicPerMinute, rl.MaxKeys)

	verifyJWT := authenticator.VerifyJWT()
	adminOnly := middleware.RequireRoles(domain.RoleAdmin)

	auth := s.Router.Group(basePath + "/auth")
	{
		auth.POST("/register", authLimiter.Handler(), authHandler.HandleRegister)
		auth.POST("/login", authLimiter.Handler(), authHandler.HandleLogin)

		auth.Use(verifyJWT)
		auth.POST("/logout", authHandler.HandleLogout)
		auth.GET("/profile", authHandler.HandleGetProfile)
		auth.PUT("/profile", authHandler.HandleUpdateProfile)
		auth.PUT("/change-password", authHandler.HandleChangePassword)
		auth.GET("/stats", adminOnly, userHandler.HandleStats)
	}

	events := s.Router.Group(basePath + "/events")
	{
		public := events.Group("", publicLimiter.Handler(), authenticator.OptionalJWT())
		public.GET("", eventHandler.HandleListEvents)
		public.GET("/upcoming", eventHandler.HandleUpcomingEvents)
		public.GET("/search", eventHandler.HandleSearchEvents)
		public.GET("/category/:category", eventHandler.HandleEventsByCategory)
		public.GET("/:id", eventHandler.HandleGetEvent)

		managed := events.Group("", verifyJWT, adminOnly)
		managed.POST("", eventHandler.HandleCreateEvent)
		managed.PUT("/:id", eventHandler.HandleUpdateEvent)
		managed.DELETE("/:id", eventHandler.HandleDeleteEvent)
		managed.GET("/admin/analytics", eventHandler.HandleEventAnalytics)
	}

	registrations := s.Router.Group(basePath+"/registrations", verifyJWT)
	{
		registrations.POST("", registrationHandler.HandleRegister)
		registrations.GET("/my-registrations", registrationHandler.HandleMyRegistrations)
		registrations.GET("/:id", registrationHandler.HandleGetRegistration)
		registrations.PUT("/:id/cancel", registrationHandler.HandleCancel)
		registrations.PUT("/:id/feedback", registrationHandler.HandleFeedback)

		managed := registrations.Group("", adminOnly)
		managed.GET("/event/:eventId", registrationHandler.HandleEventRegistrations)
		managed.PUT("/:id/attendance", registrationHandler.HandleAttendance)
		managed.GET("/admin/analytics", registrationHandler.HandleAnalytics)
		managed.PUT("/admin/bulk-status", registrationHandler.HandleBulkStatus)
	}

	users := s.Router.Group(basePath+"/users", verifyJWT, adminOnly)
	{
		users.GET("", userHandler.HandleListUsers)
		users.GET("/:id", userHandler.HandleGetUser)
		users.PUT("/:id", userHandler.HandleUpdateUser)
		users.DELETE("/:id", userHandler.HandleDeleteUser)
	}

	s.Router.GET("/health", healthHandler.HandleHealthcheck)
	s.Router.GET("/ws", v1.NewRealtimeHandler(s.hub, authenticator).HandleWebSocket)
	s.Router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "College Event Portal API"
	docs.SwaggerInfo.Description = "Events, registrations and accounts for the college event portal."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
