package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/Jenaru0/dela-storefront/internal/config"
	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
	"github.com/Jenaru0/dela-storefront/internal/platform/shutdown"
)

type Options struct {
	ServiceName  string
	JWTSecret    string
	AccessTTL    time.Duration
	RenewalTTL   time.Duration
	BcryptCost   int
	Products     []types.Product
	AllowOrigins []string
	Now          func() time.Time
}

// OptionsFrom maps the devserver section of the configuration.
func OptionsFrom(cfg *config.Config) Options {
	opts := Options{
		ServiceName: cfg.ServiceName,
		JWTSecret:   cfg.DevServer.JWTSecret,
		AccessTTL:   cfg.DevServer.AccessTTL.Duration,
		RenewalTTL:  cfg.DevServer.RefreshTTL.Duration,
	}
	for _, p := range cfg.DevServer.Products {
		opts.Products = append(opts.Products, types.Product{
			ID:             p.ID,
			Name:           p.Name,
			UnitPrice:      p.UnitPrice,
			Stock:          p.Stock,
			ReserveMinimum: p.ReserveMinimum,
			Category:       p.Category,
			Image:          p.Image,
		})
	}
	return opts
}

// Server is a reference storefront API: accounts, token issuing, a product
// catalog and per-user carts, all in memory.
type Server struct {
	log    *logger.Logger
	engine *gin.Engine
	users  *userStore
	tokens *tokenIssuer
	shop   *shop
	faults *Faults
}

func New(log *logger.Logger, opts Options) (*Server, error) {
	log = logger.OrNop(log).With("component", "DevServer")
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RenewalTTL <= 0 {
		opts.RenewalTTL = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if strings.TrimSpace(opts.ServiceName) == "" {
		opts.ServiceName = "dela-storefront-devserver"
	}
	if strings.TrimSpace(opts.JWTSecret) == "" {
		opts.JWTSecret = uuid.New().String() + uuid.New().String()
		log.Warn("JWT_SECRET_KEY not set, using an ephemeral signing key")
	}
	if len(opts.Products) == 0 {
		opts.Products = DefaultProducts()
	}

	s := &Server{
		log:    log,
		users:  newUserStore(opts.BcryptCost),
		tokens: newTokenIssuer(opts.JWTSecret, opts.AccessTTL, opts.RenewalTTL, opts.Now),
		shop:   newShop(opts.Products),
		faults: &Faults{},
	}
	s.engine = s.router(opts)
	return s, nil
}

func (s *Server) router(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(opts.ServiceName))
	r.Use(requestIDs())
	r.Use(requestLogger(s.log))
	r.Use(corsMiddleware(opts.AllowOrigins))

	r.GET("/healthcheck", func(c *gin.Context) { respondOK(c, gin.H{"status": "ok"}) })

	auth := r.Group("/auth")
	{
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
		auth.POST("/refresh", s.refresh)
		auth.POST("/logout", s.logout)
		auth.GET("/verify", s.verifyFault, s.requireAuth(), s.verify)
	}

	r.GET("/products", s.listProducts)
	r.GET("/products/:id", s.getProduct)

	cart := r.Group("/cart")
	cart.Use(s.requireAuth(), s.cartFault)
	{
		cart.GET("", s.getCart)
		cart.DELETE("", s.clearCart)
		cart.POST("/items", s.addItem)
		cart.PUT("/items/:productId", s.updateItem)
		cart.DELETE("/items/:productId", s.removeItem)
	}
	return r
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Faults() *Faults { return s.faults }

// SetStock changes a product's on-hand stock.
func (s *Server) SetStock(productID string, n int) bool { return s.shop.setStock(productID, n) }

// SeedUser registers an account directly, e.g. a demo login.
func (s *Server) SeedUser(reg types.Registration) (types.User, error) {
	return s.users.register(reg)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("dev server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		return shutdown.OnDone(gctx, shutdownTimeout, func(stopCtx context.Context) error {
			s.log.Info("dev server shutting down")
			return srv.Shutdown(stopCtx)
		})
	})
	return g.Wait()
}
