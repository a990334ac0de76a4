// Package httpapi exposes the gateway over a JSON HTTP API built on gin.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/any2json/internal/logging"
	"github.com/dmitrijs2005/any2json/internal/server/convert"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/dmitrijs2005/any2json/internal/server/services"
	"github.com/dmitrijs2005/any2json/internal/server/twofactor"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Gateway is the set of operations the API serves. *services.Gateway implements it.
type Gateway interface {
	Register(ctx context.Context, email, password string) (*services.Session, error)
	Login(ctx context.Context, email, password, code string) (*services.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*models.Account, error)
	Balance(ctx context.Context, accountID string) (*services.BalanceView, error)
	RotateAPIKey(ctx context.Context, accountID string) (string, error)
	SetupTwoFactor(ctx context.Context, accountID string) (*twofactor.Enrollment, error)
	ConfirmTwoFactor(ctx context.Context, accountID, code string) (bool, error)
	DisableTwoFactor(ctx context.Context, accountID, code string) error
	Networks() []models.Network
	RequestAddress(ctx context.Context, accountID, network string) (*services.AddressView, error)
	Convert(ctx context.Context, accountID string, req convert.Request) (*convert.Result, error)
	LoadPool(ctx context.Context, network string, addrs []string) (added, size int, err error)
	CreditPayment(ctx context.Context, network, address string, amount decimal.Decimal) (*services.PaymentResult, error)
}

// Router wraps the gin engine with the API handlers.
type Router struct {
	engine     *gin.Engine
	h          *handlers
	gw         Gateway
	adminToken string
	log        logging.Logger
}

// NewRouter builds the engine. Admin routes are only mounted when adminToken is set.
func NewRouter(gw Gateway, adminToken string, log logging.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:     gin.New(),
		h:          &handlers{gw: gw},
		gw:         gw,
		adminToken: adminToken,
		log:        log.With("module", "http"),
	}
	r.setupMiddleware()
	r.setupRoutes()
	return r
}

func (r *Router) setupMiddleware() {
	r.engine.Use(Recovery(r.log))
	r.engine.Use(Logger(r.log))
	r.engine.Use(CORS())
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.h.health)

	api := r.engine.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", r.h.register)
		authGroup.POST("/login", r.h.login)

		account := api.Group("/account", RequireAccount(r.gw))
		account.GET("/balance", r.h.balance)
		account.POST("/regenerate-key", r.h.regenerateKey)
		account.POST("/2fa/setup", r.h.setup2FA)
		account.POST("/2fa/verify", r.h.verify2FA)
		account.POST("/2fa/disable", r.h.disable2FA)

		payments := api.Group("/payments")
		payments.GET("/networks", r.h.networks)
		payments.POST("/get-address", RequireAccount(r.gw), r.h.getAddress)

		api.POST("/convert", RequireAccount(r.gw), r.h.convert)

		if r.adminToken != "" {
			admin := api.Group("/admin", RequireAdmin(r.adminToken))
			admin.POST("/pools/:network", r.h.loadPool)
			admin.POST("/payments", r.h.creditPayment)
		}
	}
}

func (r *Router) Handler() http.Handler {
	return r.engine
}
