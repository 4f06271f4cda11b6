package router

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/studynest/backend/internal/ai"
	tokens "github.com/anonto42/studynest/backend/internal/auth"
	"github.com/anonto42/studynest/backend/internal/handlers"
	"github.com/anonto42/studynest/backend/internal/middleware"
	"github.com/anonto42/studynest/backend/internal/notify"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/anonto42/studynest/backend/internal/services"
	"github.com/anonto42/studynest/backend/internal/storage"
	"github.com/anonto42/studynest/backend/pkg/config"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// multipart framing allowance on top of the per-file cap
const uploadOverhead = 1 << 20

// Dependencies are the long-lived components the routes are built from.
// FirebaseAuth may be nil.
type Dependencies struct {
	Config        *config.Config
	DB            *config.DB
	Users         repositories.UserRepository
	Blacklist     repositories.TokenBlacklist
	Notifications repositories.NotificationRepository
	Storage       storage.Backend
	AI            *ai.Client
	Fanout        *notify.Service
	Publisher     notify.Publisher
	FirebaseAuth  handlers.IDTokenVerifier
	Logger        *zap.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	cfg := deps.Config
	logger := deps.Logger
	database := deps.DB.Database

	e.GET("/health", handlers.HealthCheck(healthChecks(deps.DB)))

	// --- Initialize Repositories ---
	questionRepo := repositories.NewMongoQuestionRepository(database)
	answerRepo := repositories.NewMongoAnswerRepository(database)
	noteRepo := repositories.NewMongoNoteRepository(database)
	flashcardRepo := repositories.NewMongoFlashcardRepository(database)
	plannerRepo := repositories.NewMongoPlannerRepository(database)
	chatRepo := repositories.NewMongoChatRepository(database)

	issuer := tokens.NewIssuer(cfg.JWTSecret, cfg.JWTExpiry)
	verifier := middleware.NewIdentityVerifier(issuer, deps.Users, deps.Blacklist, logger)
	requireAuth := verifier.Middleware()

	forum := services.NewForumService(questionRepo, answerRepo, deps.AI, deps.Publisher, logger)
	uploader := storage.NewUploader(deps.Storage, cfg.MaxUploadBytes)

	uploadLimit := eMiddleware.BodyLimit(strconv.FormatInt(cfg.MaxUploadBytes+uploadOverhead, 10))
	aiLimit := aiRateLimiter(cfg.AIRateLimit)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/auth")
	handlers.NewAuthHandler(deps.Users, deps.Blacklist, issuer, deps.FirebaseAuth, logger).
		RegisterAuthRoutes(authGroup, requireAuth)

	// --- Protected routes ---
	api := e.Group("/api")
	api.Use(requireAuth)

	userHandler := handlers.NewUserHandler(deps.Users, uploader, logger,
		noteRepo.DeleteNotesByUser,
		flashcardRepo.DeleteFlashcardsByUser,
		plannerRepo.DeleteTasksByUser,
		chatRepo.DeleteChatsByUser,
		deps.Notifications.DeleteByUser,
	)
	userHandler.RegisterProfileRoutes(api, uploadLimit)
	handlers.NewFollowHandler(deps.Users).RegisterFollowRoutes(api)

	handlers.NewQuestionHandler(forum).RegisterQuestionRoutes(api)
	handlers.NewAnswerHandler(forum).RegisterAnswerRoutes(api)
	handlers.NewNotificationHandler(deps.Fanout).RegisterNotificationRoutes(api)

	handlers.NewNoteHandler(noteRepo, uploader).RegisterNoteRoutes(api, uploadLimit)
	handlers.NewFlashcardHandler(flashcardRepo, deps.AI, logger).RegisterFlashcardRoutes(api, aiLimit)
	handlers.NewPlannerHandler(plannerRepo).RegisterPlannerRoutes(api)
	handlers.NewChatHandler(chatRepo, deps.AI).RegisterChatRoutes(api, aiLimit)

	logger.Info("routes configured", zap.Int("count", len(e.Routes())))
}

// aiRateLimiter throttles AI-backed routes per user, falling back to the client IP.
func aiRateLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return eMiddleware.RateLimiterWithConfig(eMiddleware.RateLimiterConfig{
		Store: eMiddleware.NewRateLimiterMemoryStoreWithConfig(eMiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: 5 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if user := middleware.CurrentUser(c); user != nil {
				return user.ID.Hex(), nil
			}
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many AI requests, please slow down")
		},
	})
}

func healthChecks(db *config.DB) map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{
		"mongo": func(ctx context.Context) error { return db.Mongo.Ping(ctx, nil) },
	}
	if db.Postgres != nil {
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := db.Postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	return checks
}
