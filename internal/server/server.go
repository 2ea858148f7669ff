package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/courrier-mf/courrier/handlers"
	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/internal/courrier"
	"github.com/courrier-mf/courrier/internal/courrier/handler"
	"github.com/courrier-mf/courrier/internal/courrier/service"
	"github.com/courrier-mf/courrier/internal/database"
	"github.com/courrier-mf/courrier/internal/oidc"
	"github.com/courrier-mf/courrier/internal/sessions"
	"github.com/courrier-mf/courrier/internal/storage"
	"github.com/courrier-mf/courrier/internal/tokens"
	"github.com/courrier-mf/courrier/internal/users"
	"github.com/courrier-mf/courrier/pkg/logger"
	"github.com/courrier-mf/courrier/pkg/metrics"
	"github.com/courrier-mf/courrier/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var registerMetrics sync.Once

// Deps are the optional backing services. Zero values select the in-memory
// implementations.
type Deps struct {
	Redis    *redis.Client
	Mongo    *mongo.Database
	Store    storage.AttachmentStore
	Verifier middleware.Verifier
}

// Server is the assembled HTTP API.
type Server struct {
	Engine    *gin.Engine
	Courriers service.Service
	Users     *users.Service
	Sessions  *sessions.Service

	cfg     *config.Config
	deps    Deps
	started time.Time
}

// Connect opens every backing service cfg names. Each one is optional: a
// failure is logged and the in-memory fallback stays in place. The returned
// func releases what was opened.
func Connect(ctx context.Context, cfg *config.Config) (Deps, func(context.Context)) {
	var deps Deps
	var closers []func(context.Context)

	if cfg.Redis.Addr() != "" {
		client, err := database.ConnectRedis(ctx, cfg.Redis, database.ConnectAttempts)
		if err != nil {
			logger.Warnf("redis unavailable at %s, using memory sessions: %v", cfg.Redis.Addr(), err)
		} else {
			deps.Redis = client
			closers = append(closers, func(context.Context) { _ = client.Close() })
			logger.Infof("connected to redis %s", cfg.Redis.Addr())
		}
	}

	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			logger.Warnf("could not connect to MongoDB, using memory repositories: %v", err)
		} else {
			deps.Mongo = client.Database(cfg.MongoDB.Database)
			closers = append(closers, func(ctx context.Context) { _ = client.Disconnect(ctx) })
			logger.Infof("connected to MongoDB database %s", cfg.MongoDB.Database)
		}
	}

	if cfg.MinIO.Endpoint != "" {
		st, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("minio unavailable, attachments keep names only: %v", err)
		} else {
			deps.Store = st
			logger.Infof("attachments stored in bucket %s", cfg.MinIO.Bucket)
		}
	}

	var verifiers middleware.AnyVerifier
	if v, err := tokens.NewVerifier(cfg.JWT.Secret); err == nil {
		verifiers = append(verifiers, v)
	}
	if cfg.Keycloak.URL != "" {
		v, err := oidc.NewKeycloakVerifier(ctx, cfg.Keycloak)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifiers = append(verifiers, v)
		}
	}
	if len(verifiers) > 0 {
		deps.Verifier = verifiers
	}

	return deps, func(ctx context.Context) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i](ctx)
		}
	}
}

func loadCatalog(cfg *config.Config) (*courrier.Catalog, error) {
	if cfg.Courrier.CatalogFile == "" {
		return courrier.DefaultCatalog(), nil
	}
	return courrier.LoadCatalog(cfg.Courrier.CatalogFile)
}

// New builds the services over deps, bootstraps the admin and sample data,
// and mounts every route.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Server, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	opts := []service.Option{service.WithCatalog(cat), service.WithLocation(cfg.Courrier.Location())}
	if deps.Store != nil {
		opts = append(opts, service.WithStore(deps.Store))
	}

	s := &Server{cfg: cfg, deps: deps, started: time.Now()}

	var userRepo users.UserRepository = users.NewMemoryUserRepository()
	var sessionRepo sessions.Repository = sessions.NewMemoryRepository()
	if deps.Mongo != nil {
		if s.Courriers, err = service.NewMongoService(ctx, deps.Mongo, opts...); err != nil {
			return nil, fmt.Errorf("courrier repository: %w", err)
		}
		if userRepo, err = users.NewMongoUserRepository(ctx, deps.Mongo.Collection("users")); err != nil {
			return nil, fmt.Errorf("user repository: %w", err)
		}
		if sessionRepo, err = sessions.NewMongoRepository(ctx, deps.Mongo.Collection("sessions")); err != nil {
			return nil, fmt.Errorf("session repository: %w", err)
		}
	} else {
		s.Courriers = service.NewMemoryService(opts...)
	}
	if deps.Redis != nil {
		sessionRepo = sessions.NewRedisRepository(deps.Redis, "")
	}
	s.Users = users.NewService(userRepo)
	s.Sessions = sessions.NewService(sessionRepo)

	if _, err := s.Users.EnsureAdmin(ctx, cfg.Admin); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if cfg.Courrier.Seed {
		if err := s.seed(ctx); err != nil {
			return nil, err
		}
	}

	s.Engine = s.routes()
	return s, nil
}

// seed adds the sample courriers to an empty register.
func (s *Server) seed(ctx context.Context) error {
	st, err := s.Courriers.Stats(ctx)
	if err != nil {
		return err
	}
	if st.Total > 0 {
		return nil
	}
	if err := service.SeedSamples(ctx, s.Courriers); err != nil {
		return err
	}
	logger.Infof("seeded sample courriers")
	return nil
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		h.Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) routes() *gin.Engine {
	cfg := s.cfg
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), cors())

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && s.deps.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(s.deps.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", s.ready)

	registerMetrics.Do(func() { metrics.RegisterCollectors(prometheus.DefaultRegisterer) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	blacklist := sessions.NewBlacklist(s.deps.Redis)
	authn := handlers.Unavailable("authentication is not configured")
	if s.deps.Verifier != nil {
		authn = middleware.AuthMiddleware(s.deps.Verifier, blacklist)
	}

	handlers.NewAuthHandler(cfg, s.Users, s.Sessions, blacklist).Register(r, authn)
	handlers.RegisterMeRoutes(r, s.Users, authn)

	var guard, adminGuard []gin.HandlerFunc
	if cfg.Auth.Required {
		guard = []gin.HandlerFunc{authn, handlers.CurrentUser(s.Users)}
		adminGuard = append(guard, handlers.RequireAdmin())
	}
	handlers.RegisterUserRoutes(r, s.Users, adminGuard...)
	handler.RegisterCourrierRoutes(r.Group("/", guard...), s.Courriers)

	return r
}

// ready reports 200 once every configured dependency answers.
func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	deps := map[string]bool{}
	ok := true
	check := func(name string, configured bool, up func() error) {
		if !configured {
			return
		}
		err := up()
		deps[name] = err == nil
		if err != nil {
			logger.Warnf("readiness: %s: %v", name, err)
			ok = false
		}
	}
	check("redis", s.cfg.Redis.Addr() != "", func() error {
		if s.deps.Redis == nil {
			return errors.New("not connected")
		}
		return s.deps.Redis.Ping(ctx).Err()
	})
	check("mongodb", s.cfg.MongoDB.URI != "", func() error {
		if s.deps.Mongo == nil {
			return errors.New("not connected")
		}
		return s.deps.Mongo.Client().Ping(ctx, nil)
	})

	status, code := "ready", http.StatusOK
	if !ok {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(s.started).String()})
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("courrier service listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
