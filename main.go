package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vogue/db"
	"vogue/globals"
	"vogue/middleware"
	"vogue/mq"
	"vogue/ratelim"
	"vogue/rdx"
	"vogue/routes"
	"vogue/session"
	"vogue/upstream"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// XSS, content sniffing, framing
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		// HSTS (must be on HTTPS)
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		// Referrer and permissions
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		// Prevent caching
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func main() {
	env, found := globals.Load()

	log, err := newLogger(env.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	if !found {
		log.Info("no .env file found; using system environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	mongo, err := db.Connect(connectCtx, env.MongoURI, env.MongoDB)
	if err != nil {
		cancel()
		log.Fatal("mongo unavailable", zap.Error(err))
	}
	if err := mongo.EnsureIndexes(connectCtx); err != nil {
		log.Warn("indexes not created", zap.Error(err))
	}
	conn, err := rdx.Connect(connectCtx, env.RedisAddr, env.RedisPass, 0)
	cancel()
	if err != nil {
		log.Fatal("redis unavailable", zap.Error(err))
	}

	api := upstream.New(
		mongo,
		middleware.JWT{Secret: env.JWTSecret},
		mq.NewEmitter(conn, log.Named("mq")),
		ratelim.NewRateLimiter(120, 20),
		log.Named("upstream"),
	)
	sessions := session.NewManager(session.Options{
		Redis:    conn,
		Upstream: env.UpstreamURL,
		Log:      log,
	})

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := mq.StartAnalyticsWorker(ctx, conn, api.StoreEvent, log.Named("mq"), nil); err != nil {
			log.Error("analytics worker stopped", zap.Error(err))
		}
	}()
	go sessions.Run(ctx)

	router := httprouter.New()
	routes.AddUtilityRoutes(router)
	routes.AddUpstreamRoutes(router, api)
	routes.AddSessionRoutes(router, sessions)

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Session-ID", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              env.Port,
		Handler:           loggingMiddleware(log.Named("http"), securityHeaders(corsHandler)),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", env.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ListenAndServe", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received; shutting down gracefully")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := sessions.Close(shutdownCtx); err != nil {
		log.Warn("sessions did not flush", zap.Error(err))
	}
	<-workerDone
	if err := conn.Close(); err != nil {
		log.Warn("redis close", zap.Error(err))
	}
	if err := mongo.Close(shutdownCtx); err != nil {
		log.Warn("mongo close", zap.Error(err))
	}
	log.Info("server stopped cleanly")
}
