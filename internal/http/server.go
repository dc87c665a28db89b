package http

import (
	"context"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"forum-service/internal/audit"
	"forum-service/internal/auth"
	"forum-service/internal/bootstrap"
	"forum-service/internal/config"
	"forum-service/internal/http/handler"
	"forum-service/internal/http/middleware"
	"forum-service/internal/ratelimit"
	"forum-service/internal/repository/postgres"
	"forum-service/internal/storage/s3"
)

const requestBodyLimit = "1M"

type ServerDependencies struct {
	Config       *config.Config
	Bootstrapper *bootstrap.Bootstrapper
	Resolver     *auth.Resolver
	Limiter      *ratelimit.Limiter
	CSRFCodec    *auth.CSRFCodec
	AuditLogger  *audit.Logger
	Posts        *postgres.PostRepository
	Comments     *postgres.CommentRepository
	Bookings     *postgres.BookingRepository
	Profiles     *postgres.ProfileRepository
	Infos        *postgres.InfoRepository
	Purchases    *postgres.PurchaseRepository
	Unlocker     handler.CheckoutUnlocker
	Attachments  *s3.Client
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	production := deps.Config.Env == "production"
	e.HTTPErrorHandler = NewHTTPErrorHandler(production)

	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	// Request ID first so every later log line carries it.
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders(deps.Config.Security))
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))

	// Schema application is lazy; API traffic waits for it.
	e.Use(middleware.BootstrapGate(deps.Bootstrapper))

	authorizer := middleware.NewAuthorizer(deps.Resolver, deps.Limiter, deps.CSRFCodec, middleware.AuthorizerOptions{
		SecureCookies: production,
	})
	e.Use(authorizer.Middleware())

	authHandler := handler.NewAuthHandler(deps.CSRFCodec, deps.AuditLogger, production)
	postHandler := handler.NewPostHandler(deps.Posts, deps.AuditLogger)
	commentHandler := handler.NewCommentHandler(deps.Comments, deps.Posts, deps.AuditLogger)
	bookingHandler := handler.NewBookingHandler(deps.Bookings, deps.AuditLogger)
	profileHandler := handler.NewProfileHandler(deps.Profiles)
	adminHandler := handler.NewAdminHandler(deps.Profiles, deps.AuditLogger)
	infoHandler := handler.NewInfoHandler(deps.Infos, deps.AuditLogger)
	paymentHandler := handler.NewPaymentHandler(deps.Unlocker, deps.Purchases, deps.AuditLogger)
	uploadHandler := handler.NewUploadHandler(deps.Attachments)

	e.GET("/health", healthCheck)
	e.GET("/login", loginPage)
	e.GET("/", homePage)
	e.GET("/admin", adminPage)
	e.GET("/admin/*", adminPage)

	api := e.Group("/api")

	authBurst := middleware.NewAuthBurstLimiter()
	api.POST("/auth/refresh-session", authHandler.RefreshSession, authBurst.Middleware())
	api.GET("/check-session", authHandler.CheckSession)

	api.GET("/posts", postHandler.List)
	api.POST("/posts", postHandler.Create)
	api.GET("/posts/:id", postHandler.Get)
	api.PUT("/posts/:id", postHandler.Update)
	api.DELETE("/posts/:id", postHandler.Delete)

	api.GET("/posts/:id/comments", commentHandler.ListByPost)
	api.POST("/posts/:id/comments", commentHandler.Create)
	api.DELETE("/comments/:id", commentHandler.Delete)

	api.GET("/bookings", bookingHandler.Schedule)
	api.GET("/bookings/mine", bookingHandler.Mine)
	api.POST("/bookings", bookingHandler.Create)
	api.DELETE("/bookings/:id", bookingHandler.Cancel)
	api.GET("/admin/bookings", bookingHandler.Upcoming)

	api.GET("/profile", profileHandler.Me)
	api.PUT("/profile", profileHandler.UpdateMe)
	api.GET("/profiles/:username", profileHandler.Get)

	api.GET("/admin/users", adminHandler.ListUsers)
	api.PUT("/admin/users/:id/privilege", adminHandler.UpdatePrivilege)
	api.PUT("/admin/users/:id/role", adminHandler.UpdateRole)
	api.POST("/admin/users/:id/custom-roles", adminHandler.GrantCustomRole)
	api.DELETE("/admin/users/:id/custom-roles/:key", adminHandler.RevokeCustomRole)

	api.GET("/info", infoHandler.List)
	api.POST("/info", infoHandler.Create)
	api.PUT("/info/:id", infoHandler.Update)
	api.DELETE("/info/:id", infoHandler.Delete)

	api.GET("/check-session-status", paymentHandler.CheckSessionStatus)
	api.GET("/purchases", paymentHandler.ListMine)

	api.POST("/upload", uploadHandler.CreateUploadURL)
	api.GET("/attachments/download-url", uploadHandler.CreateDownloadURL)
	api.DELETE("/attachments", uploadHandler.Delete)

	return &Server{
		echo: e,
		deps: deps,
	}
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func healthCheck(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{
		"status": "ok",
	})
}

// The frontend is served separately in production; these pages exist
// so the admin redirect targets resolve during local development.

func loginPage(c echo.Context) error {
	return c.HTML(stdhttp.StatusOK, "<!doctype html><title>Sign in</title><h1>Sign in</h1>")
}

func homePage(c echo.Context) error {
	return c.HTML(stdhttp.StatusOK, "<!doctype html><title>Forum</title><h1>Forum</h1>")
}

func adminPage(c echo.Context) error {
	return c.HTML(stdhttp.StatusOK, "<!doctype html><title>Admin</title><h1>Admin</h1>")
}
