package app

import (
	"database/sql"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-timeclock/internal/assignment"
	"go-timeclock/internal/audit"
	"go-timeclock/internal/idempotency"
	"go-timeclock/internal/invoice"
	"go-timeclock/internal/job"
	"go-timeclock/internal/messaging/kafka"
	"go-timeclock/internal/middleware"
	"go-timeclock/internal/rbac"
	"go-timeclock/internal/review"
	"go-timeclock/internal/shared/apperror"
	"go-timeclock/internal/shared/counter"
	"go-timeclock/internal/shared/response"
	"go-timeclock/internal/sweeper"
	"go-timeclock/internal/timeentry"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	cfg Config,
) error {
	// --- Repositories ---
	entryRepo := timeentry.NewRepository(gormDB)
	jobRepo := job.NewRepository(gormDB)
	if rdb != nil {
		jobRepo = job.NewCachedRepository(jobRepo, rdb, cfg.JobCacheTTL)
	}
	assignmentRepo := assignment.NewRepository(gormDB)
	idemRepo := idempotency.NewRepository(gormDB)
	auditRepo := audit.NewRepository(gormDB)
	invoiceRepo := invoice.NewRepository(gormDB)
	counterRepo := counter.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := rbac.NewEnforcer(
		filepath.Join("internal", "rbac", "model.conf"),
		filepath.Join("internal", "rbac", "policy.csv"),
	)
	if err != nil {
		return err
	}

	// --- Services ---
	guard := idempotency.NewGuard(cfg.IdempotencyWindow)
	entryService := timeentry.NewService(
		db, entryRepo, jobRepo, assignmentRepo, idemRepo, guard, auditRepo, outboxRepo,
		timeentry.Config{
			MaxShift:              cfg.MaxShift,
			AccuracyCeilingMeters: cfg.AccuracyCeilingM,
		},
	)
	reviewService := review.NewService(db, entryRepo, auditRepo)
	invoiceService := invoice.NewService(db, invoiceRepo, entryRepo, jobRepo, counterRepo, auditRepo, outboxRepo)
	sweeperService := sweeper.NewService(db, entryRepo, auditRepo, outboxRepo, sweeper.Config{
		Threshold: cfg.MaxShift,
	})

	// --- Handlers ---
	entryHandler := timeentry.NewHandler(entryService)
	reviewHandler := review.NewHandler(reviewService, rdb)
	invoiceHandler := invoice.NewHandler(invoiceService, rdb)
	sweeperHandler := sweeper.NewHandler(sweeperService)

	// --- Global middleware ---
	router.Use(middleware.RequestID())
	router.Use(middleware.ContextLogger(zap.L()))
	router.NoRoute(func(c *gin.Context) {
		e := apperror.ErrNotFound
		response.Error(c, e.HTTPStatus, e.Code, e.Message, nil)
	})

	// Attestation only guards the mobile clock paths; admin traffic comes
	// from the web console and has no device token.
	var verifier middleware.AttestationVerifier
	if cfg.AttestationSecret != "" {
		verifier = middleware.NewHMACAttestationVerifier(cfg.AttestationSecret)
	}

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		timeentry.RegisterRoutes(api, entryHandler, enforcer, verifier)
		review.RegisterRoutes(api, reviewHandler, enforcer, rdb)
		invoice.RegisterRoutes(api, invoiceHandler, enforcer, rdb)
		sweeper.RegisterRoutes(api, sweeperHandler, enforcer)
	}

	return nil
}
