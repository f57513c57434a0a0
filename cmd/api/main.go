package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ip-tracking-api/config"
	"ip-tracking-api/metrics"
	"ip-tracking-api/middleware"
	"ip-tracking-api/repository"
	"ip-tracking-api/routes"
	"ip-tracking-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize database
	config.InitDB()

	settings := config.LoadWorkflowSettings()
	if settings.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	store := repository.NewGormStore(config.DB)
	engine := services.NewEngine(services.EngineConfig{
		Store:             store,
		Metrics:           metrics.New(prometheus.DefaultRegisterer),
		Notifier:          buildNotifier(settings, store),
		CertificatePrefix: settings.CertificatePrefix,
		TxTimeout:         settings.TxTimeout,
	})

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()
	router.Use(gin.LoggerWithWriter(config.LogWriter))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(settings.CORSAllowedOrigins))

	routes.SetupRoutes(router, routes.Deps{Engine: engine, JWTSecret: settings.JWTSecret})

	srv := &http.Server{
		Addr:              ":" + settings.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on port %s", settings.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("Stage reconciler sweeping every %s", settings.ReconcileInterval)
		if err := engine.Reconciler.Start(gctx, settings.ReconcileInterval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Println("Shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}
	// Let after-commit listeners finish before exit.
	engine.Bus.Wait()
	log.Println("Server exited")
}

func buildNotifier(settings config.WorkflowSettings, store repository.Store) services.Notifier {
	if !settings.NotificationsEnabled {
		log.Println("Notifications disabled")
		return nil
	}

	var notifiers []services.Notifier
	mail := config.LoadMailSettings()
	if mail.Configured() {
		notifiers = append(notifiers, services.NewMailNotifier(config.NewMailer(mail).Send, settings.AppBaseURL))
	} else {
		log.Println("SMTP not configured; mail notifications disabled")
	}
	if settings.InAppNotifications {
		notifiers = append(notifiers, services.NewInAppNotifier(store))
	}

	switch len(notifiers) {
	case 0:
		return nil
	case 1:
		return notifiers[0]
	default:
		return services.NewMultiNotifier(notifiers...)
	}
}
