package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/quickserve/kiosk/internal/domain/bill"
	"github.com/quickserve/kiosk/internal/domain/settlement"
	"github.com/quickserve/kiosk/internal/domain/venue"
	"github.com/quickserve/kiosk/internal/gateway"
	"github.com/quickserve/kiosk/internal/handler"
	"github.com/quickserve/kiosk/internal/notify"
	"github.com/quickserve/kiosk/internal/receipt"
	"github.com/quickserve/kiosk/internal/storage/docstore"
	"github.com/quickserve/kiosk/internal/storage/postgres"
	"github.com/quickserve/kiosk/pkg/health"
	"github.com/quickserve/kiosk/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	serviceChargeRate, err := cfg.Venue.ServiceChargeRateDecimal()
	if err != nil {
		return err
	}
	vp := venue.Profile{
		Name:           cfg.Venue.Name,
		AddressLine1:   cfg.Venue.AddressLine1,
		AddressLine2:   cfg.Venue.AddressLine2,
		City:           cfg.Venue.City,
		State:          cfg.Venue.State,
		CountryCode:    cfg.Venue.CountryCode,
		CurrencyCode:   cfg.Venue.CurrencyCode,
		CurrencyLabel:  cfg.Venue.CurrencyLabel,
		ReceiptFooters: cfg.Venue.ReceiptFooters,
		Tax: venue.TaxConfiguration{
			ServiceChargeRate:       serviceChargeRate,
			ServiceChargeDineInOnly: cfg.Venue.ServiceChargeDineInOnly,
		},
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := os.MkdirAll(cfg.Receipts.Dir, 0o755); err != nil {
		return errors.Wrap(err, "create receipts dir")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("receipts-dir", time.Second, receiptsDirCheck(cfg.Receipts.Dir))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	menuRepo := postgres.NewMenuRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	// Payment, receipt and notification collaborators.
	gw := gateway.NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	dispatcher := notify.NewDispatcher(notify.Config{
		AccountSID:  cfg.Twilio.AccountSID,
		AuthToken:   cfg.Twilio.AuthToken,
		FromNumber:  cfg.Twilio.FromNumber,
		CountryCode: cfg.Venue.CountryCode,
		VenueName:   cfg.Venue.Name,
	})
	if !dispatcher.Configured() {
		lg.Info("SMS notifications not configured, receipts will not be texted")
	}
	store := docstore.NewFilesystem(cfg.Receipts.Dir, cfg.Receipts.PublicBaseURL)
	issuer := receipt.NewIssuer(vp, receipt.PDFRenderer{}, store)
	bills := bill.NewGenerator(cfg.BillPrefix)
	phones := notify.NewNormalizer(cfg.Venue.CountryCode)

	orch := settlement.NewOrchestrator(orderRepo, gw, issuer, dispatcher, bills, phones.Normalize, vp)

	// HTTP handlers.
	h := handler.New(
		handler.Config{
			GatewayKeyID: cfg.Razorpay.KeyID,
			ImageBaseURL: cfg.ImageBaseURL,
		},
		menuRepo,
		orderRepo,
		orch,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("GET /invoices/", http.StripPrefix("/invoices/",
		http.FileServer(http.Dir(cfg.Receipts.Dir))))
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("kiosk-api", m),
			httpmiddleware.LogRequests(),
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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// receiptsDirCheck verifies the receipts directory is still writable. A
// full or read-only disk degrades receipt generation, so surface it before
// a customer hits it.
func receiptsDirCheck(dir string) health.CheckFunc {
	return func(context.Context) error {
		probe := filepath.Join(dir, ".probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return err
		}
		return os.Remove(probe)
	}
}
