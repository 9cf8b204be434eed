package server

import (
	"context"
	"net/http"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/auth"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/commission"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/config"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/email"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/ledger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/plan"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/referral"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/reward"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/session"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/user"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/withdrawal"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	redis  *redis.Client
	config *config.Config
	email  *email.Service
}

func New(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, emailService *email.Service) *Server {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	ledgerRepo := ledger.NewRepository(db)
	userRepo := user.NewRepository(db)
	planRepo := plan.NewRepository(db)

	walker := referral.NewWalker(referral.NewRepository(db))
	distributor := commission.NewDistributor(ledgerRepo, walker, cfg.Rules.Commission)

	var (
		withdrawalNotifier withdrawal.Notifier
		packageNotifier    plan.Notifier
	)
	if emailService != nil {
		withdrawalNotifier = emailService
		packageNotifier = emailService
	}

	checkout := plan.NewCheckout(
		planRepo,
		session.NewStore(rdb, "checkout", cfg.CheckoutTTL),
		ledgerRepo,
		userRepo,
		distributor,
		packageNotifier,
	)

	userHandler := user.NewHandler(user.NewService(userRepo, distributor))
	walletHandler := ledger.NewHandler(ledgerRepo)
	rewardHandler := reward.NewHandler(reward.NewProcessor(ledgerRepo, userRepo, cfg.Rules))
	withdrawalHandler := withdrawal.NewHandler(withdrawal.NewService(ledgerRepo, userRepo, withdrawalNotifier, cfg.Rules.Withdrawal))
	planHandler := plan.NewHandler(plan.NewService(planRepo), checkout)

	router.GET("/health", Health(db, rdb))
	router.GET("/metrics", Metrics())
	router.GET("/packages", planHandler.List)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/users/register", userHandler.Register)
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/wallet", walletHandler.GetBalance)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)

		protected.POST("/rewards/claim", rewardHandler.Claim)
		protected.GET("/rewards/quotas", rewardHandler.Quotas)
		protected.GET("/rewards/counters", rewardHandler.Counters)

		protected.POST("/withdrawals", withdrawalHandler.Create)
		protected.GET("/withdrawals", withdrawalHandler.List)

		protected.POST("/packages/:packageID/checkout", planHandler.StartCheckout)
		protected.POST("/checkout/:token/confirm", planHandler.ConfirmCheckout)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/packages", planHandler.Create)
		admin.PATCH("/packages/:packageID", planHandler.SetActive)
		admin.POST("/checkout/:token/settle", planHandler.SettleCheckout)

		admin.GET("/withdrawals", withdrawalHandler.ListByStatus)
		admin.POST("/withdrawals/:id/approve", withdrawalHandler.Approve)
		admin.POST("/withdrawals/:id/process", withdrawalHandler.Process)
		admin.POST("/withdrawals/:id/reject", withdrawalHandler.Reject)

		if emailService != nil {
			admin.GET("/test-email", TestEmail(emailService))
		}
	}

	return &Server{
		router: router,
		db:     db,
		redis:  rdb,
		config: cfg,
		email:  emailService,
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
