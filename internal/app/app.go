package app

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/address"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/auth"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/blog"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/cart"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/category"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/contact"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/coupon"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/discount"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/order"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/payment"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/rating"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/reminder"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/returns"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/visitor"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/wishlist"
	"github.com/MabsRahman/bamboo-shop-api/internal/gateway"
	"github.com/MabsRahman/bamboo-shop-api/internal/handler"
	"github.com/MabsRahman/bamboo-shop-api/internal/metrics"
	"github.com/MabsRahman/bamboo-shop-api/internal/notify"
	"github.com/MabsRahman/bamboo-shop-api/internal/oauth"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
	"github.com/MabsRahman/bamboo-shop-api/internal/repository"
	"github.com/MabsRahman/bamboo-shop-api/pkg/health"
	"github.com/MabsRahman/bamboo-shop-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the background
// jobs, and handles graceful shutdown. It is the single wiring point for the
// application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	mtr, err := metrics.New(m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create metrics")
	}

	// Repositories.
	var (
		userRepo     = repository.NewUserRepository(pool)
		tokenRepo    = repository.NewRevokedTokenRepository(pool)
		addressRepo  = repository.NewAddressRepository(pool)
		categoryRepo = repository.NewCategoryRepository(pool)
		productRepo  = repository.NewProductRepository(pool)
		discountRepo = repository.NewDiscountRepository(pool)
		couponRepo   = repository.NewCouponRepository(pool)
		cartRepo     = repository.NewCartRepository(pool)
		orderRepo    = repository.NewOrderRepository(pool)
		paymentRepo  = repository.NewPaymentRepository(pool)
		returnRepo   = repository.NewReturnRepository(pool)
		ratingRepo   = repository.NewRatingRepository(pool)
		wishlistRepo = repository.NewWishlistRepository(pool)
		blogRepo     = repository.NewBlogRepository(pool)
		contactRepo  = repository.NewContactRepository(pool)
		visitorRepo  = repository.NewVisitorRepository(pool)
	)

	// Outbound integrations.
	mailer, err := notify.NewMailer(notify.NewTransport(cfg.SMTP), cfg.AppURL)
	if err != nil {
		return errors.Wrap(err, "create mailer")
	}
	gateways := paymentGateways(lg, cfg)
	providers := oauthProviders(lg, cfg)

	revoked := auth.NewRevocationList(tokenRepo, 0)
	if err := revoked.Reload(ctx, time.Now()); err != nil {
		return errors.Wrap(err, "load revoked tokens")
	}

	// Domain services.
	resolver := pricing.NewResolver()
	visits := visitor.NewRecorder(visitorRepo, cfg.Jobs.VisitorBuffer, lg.Named("visitor"))
	svc := handler.Services{
		Auth:       auth.NewService(userRepo, auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL), revoked, mailer, providers),
		Users:      user.NewService(userRepo),
		Addresses:  address.NewService(addressRepo),
		Categories: category.NewService(categoryRepo),
		Products:   product.NewService(productRepo, resolver),
		Discounts:  discount.NewService(discountRepo, productRepo),
		Carts:      cart.NewService(cartRepo, productRepo),
		Orders: order.NewService(order.Deps{
			Addresses: addressRepo,
			Products:  productRepo,
			Pricing:   resolver,
			Coupons:   coupon.NewRepoValidator(couponRepo),
			Orders:    orderRepo,
			Gateways:  gateways,
			Users:     userRepo,
			Notifier:  mailer,
			Metrics:   mtr,
		}),
		Payments:  payment.NewCallbackService(paymentRepo, cfg.CallbackSecret, mtr),
		Returns:   returns.NewService(returnRepo, orderRepo, userRepo, mailer, mtr),
		Ratings:   rating.NewService(ratingRepo, productRepo),
		Wishlists: wishlist.NewService(wishlistRepo, productRepo),
		Blog:      blog.NewService(blogRepo),
		Contact:   contact.NewService(contactRepo),
		Visitors:  visitor.NewService(visitorRepo),
		VisitLog:  visits,
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Background work stops with ctx; jobs is waited on after the server
	// has drained.
	var jobs sync.WaitGroup
	visits.Start(ctx)
	runEvery(ctx, &jobs, cfg.Jobs.RevocationReload, func(ctx context.Context) {
		refreshRevocations(ctx, revoked, tokenRepo)
	})
	if cfg.Jobs.ReminderInterval > 0 {
		beat := new(health.Heartbeat)
		job := reminder.NewJob(cartRepo, mailer, mtr)
		healthSvc.AddLivenessCheck("cart-reminder", time.Second,
			health.HeartbeatCheck(beat, 2*cfg.Jobs.ReminderInterval+time.Minute, time.Now))
		runEvery(ctx, &jobs, cfg.Jobs.ReminderInterval, func(ctx context.Context) {
			runReminders(ctx, job)
			beat.Beat(time.Now())
		})
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Router: health endpoints + API routes on one server.
	router := mux.NewRouter()
	router.HandleFunc("/livez", healthSvc.LiveEndpoint).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthSvc.ReadyEndpoint).Methods(http.MethodGet)
	clientIPs, err := httpmiddleware.NewClientIPResolver(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return errors.Wrap(err, "trusted proxies")
	}
	handler.NewHandler(handler.HandlerConfig{
		RefreshCookie: cfg.Cookie.Name,
		RefreshTTL:    cfg.Cookie.TTL,
		SecureCookies: cfg.Cookie.Secure,
		ClientIP:      clientIPs.ClientIP,
	}, svc).Register(router.NewRoute().Subrouter())

	routeFinder := httpmiddleware.MuxRouteFinder(router)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: clientIPs.ClientIP,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("bamboo-shop-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		jobs.Wait()
		visits.Wait()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// paymentGateways builds the online payment adapters that are configured.
// Orders for an unconfigured method fail with a payment provider error.
func paymentGateways(lg *zap.Logger, cfg *Config) map[payment.Method]payment.Gateway {
	gateways := make(map[payment.Method]payment.Gateway, 2)
	for method, gc := range map[payment.Method]gateway.Config{
		payment.MethodBkash: cfg.Bkash,
		payment.MethodNagad: cfg.Nagad,
	} {
		if !gc.Enabled() {
			lg.Info("Payment gateway disabled", zap.String("method", string(method)))
			continue
		}
		gateways[method] = gateway.New(strings.ToLower(string(method)), gc, nil)
	}
	return gateways
}

func oauthProviders(lg *zap.Logger, cfg *Config) map[string]auth.OAuthProvider {
	providers := make(map[string]auth.OAuthProvider, 2)
	if cfg.OAuth.Google.Enabled() {
		providers["google"] = oauth.Google(cfg.OAuth.Google)
	}
	if cfg.OAuth.Facebook.Enabled() {
		providers["facebook"] = oauth.Facebook(cfg.OAuth.Facebook)
	}
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	lg.Info("OAuth providers", zap.Strings("enabled", names))
	return providers
}
