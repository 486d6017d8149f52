package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"accounthub/api/internal/config"
	"accounthub/api/internal/middleware"
	"accounthub/api/internal/repository"
	"accounthub/api/internal/service"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	accounts *service.AccountService
	users    middleware.UserGetter
	db       *pgxpool.Pool
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, notifier service.Notifier, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	accounts := service.NewAccountService(userRepo, notifier, cfg, log)

	return HandlerSet{
		log:      log,
		cfg:      cfg,
		accounts: accounts,
		users:    userRepo,
		db:       db,
	}
}

func (h HandlerSet) Register(router *gin.Engine) {
	router.GET("/healthz", h.Health)

	users := router.Group("/users")
	users.POST("/register", h.RegisterUser)
	users.GET("/verify/:verificationToken", h.VerifyEmail)
	users.POST("/verify", h.ResendVerifyEmail)
	users.POST("/login", h.LoginUser)

	protected := users.Group("")
	protected.Use(middleware.Auth(h.cfg, h.users))
	protected.POST("/logout", h.Logout)
	protected.GET("/current", h.CurrentUser)
	protected.PATCH("", h.UpdateSubscription)
}
