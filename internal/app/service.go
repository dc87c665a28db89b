// Package app wires configuration, storage, auth, and the HTTP server
// into one runnable service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"forum-service/internal/audit"
	"forum-service/internal/auth"
	"forum-service/internal/bootstrap"
	"forum-service/internal/config"
	forumhttp "forum-service/internal/http"
	"forum-service/internal/payment"
	"forum-service/internal/ratelimit"
	"forum-service/internal/repository/postgres"
	"forum-service/internal/storage/s3"
)

type Service struct {
	config   *config.Config
	db       *postgres.DB
	schemaDB *sql.DB
	redis    *redis.Client
	limiter  *ratelimit.Limiter
	server   *forumhttp.Server
}

// NewService wires up all dependencies and returns a configured Service.
func NewService() (*Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Schema application uses database/sql: the simple query protocol
	// accepts the multi-statement script as one exec.
	schemaDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open schema connection: %w", err)
	}
	bootstrapper := bootstrap.New(schemaDB, bootstrap.Options{})

	var redisClient *redis.Client
	var sessionCache *auth.SessionCache
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		sessionCache = auth.NewSessionCache(redisClient, cfg.Redis.SessionCacheTTL)
	}

	profiles := postgres.NewProfileRepository(db)
	posts := postgres.NewPostRepository(db)
	comments := postgres.NewCommentRepository(db)
	bookings := postgres.NewBookingRepository(db)
	infos := postgres.NewInfoRepository(db)
	purchases := postgres.NewPurchaseRepository(db)

	codec := auth.NewCSRFCodec(cfg.AppSecret)
	upstream := auth.NewUpstreamClient(cfg.Upstream.BaseURL, cfg.Upstream.AnonKey)
	resolver := auth.NewResolver(upstream, profiles, codec, sessionCache, auth.ResolverOptions{
		ExchangeTimeout: cfg.Upstream.ExchangeTimeout,
		SecureCookies:   cfg.Env == "production",
	})

	limiter := ratelimit.New(ratelimit.Options{
		IPLimit:        cfg.RateLimit.IPLimit,
		IPWindow:       cfg.RateLimit.IPWindow,
		UserLimit:      cfg.RateLimit.UserLimit,
		UserWindow:     cfg.RateLimit.UserWindow,
		EndpointLimit:  cfg.RateLimit.EndpointLimit,
		EndpointWindow: cfg.RateLimit.EndpointWindow,
		ExemptUserIDs:  cfg.RateLimit.ExemptUserIDs,
	})

	auditLogger := audit.NewLogger(db.Pool)

	gateway := payment.NewClient(cfg.Payment.APIBaseURL, cfg.Payment.SecretKey)
	unlocker := payment.NewUnlocker(gateway, profiles, purchases, cfg.Payment.PriceToRole, cfg.Payment.ProductRoles)

	attachments, err := s3.NewClient(&cfg.AWS)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	server := forumhttp.NewServer(&forumhttp.ServerDependencies{
		Config:       cfg,
		Bootstrapper: bootstrapper,
		Resolver:     resolver,
		Limiter:      limiter,
		CSRFCodec:    codec,
		AuditLogger:  auditLogger,
		Posts:        posts,
		Comments:     comments,
		Bookings:     bookings,
		Profiles:     profiles,
		Infos:        infos,
		Purchases:    purchases,
		Unlocker:     unlocker,
		Attachments:  attachments,
	})

	return &Service{
		config:   cfg,
		db:       db,
		schemaDB: schemaDB,
		redis:    redisClient,
		limiter:  limiter,
		server:   server,
	}, nil
}

func (s *Service) Start() error {
	log.Printf("starting forum service on port %s", s.config.Server.Port)
	return s.server.Start(":" + s.config.Server.Port)
}

// Shutdown stops the HTTP server, then releases background resources.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)

	s.limiter.Stop()
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			log.Printf("redis close: %v", cerr)
		}
	}
	if cerr := s.schemaDB.Close(); cerr != nil {
		log.Printf("schema connection close: %v", cerr)
	}
	s.db.Close()

	return err
}

// ShutdownTimeout exposes the configured grace period to main.
func (s *Service) ShutdownTimeout() time.Duration {
	return s.config.Server.ShutdownTimeout
}
