package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"rehla.tn/internal/auth"
	"rehla.tn/internal/clinic"
	"rehla.tn/internal/httpapi"
	"rehla.tn/internal/notify"
	"rehla.tn/internal/obs"
	"rehla.tn/internal/token"
	"rehla.tn/internal/trips"
)

var (
	version = "0.3.0"
	commit  = "unknown"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("REHLA_AUTH_SECRET")
	if secret == "" {
		log.Fatal("REHLA_AUTH_SECRET is required")
	}
	codec, err := token.NewCodec(secret)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	// Postgres when a DSN is given, in-memory stores otherwise. The memory
	// stores are for local development only.
	var db *sql.DB
	if dsn := os.Getenv("REHLA_PG_DSN"); dsn != "" {
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var (
		authStore   auth.Store
		tripStore   trips.Store
		clinicStore clinic.Store
		notifyStore notify.Store
	)
	if db != nil {
		authStore = auth.NewPGStore(db)
		tripStore = trips.NewPGStore(db)
		clinicStore = clinic.NewPGStore(db)
		notifyStore = notify.NewPGStore(db)
	} else {
		log.Print("REHLA_PG_DSN not set, using in-memory stores")
		authStore = auth.NewMemoryStore()
		tripStore = trips.NewMemoryStore()
		clinicStore = clinic.NewMemoryStore()
		notifyStore = notify.NewMemoryStore()
	}

	var authOpts []auth.Option
	if ttl := envDuration("REHLA_TOKEN_TTL"); ttl > 0 {
		authOpts = append(authOpts, auth.WithAccessTTL(ttl))
	}
	if ttl := envDuration("REHLA_HOSPITAL_TOKEN_TTL"); ttl > 0 {
		authOpts = append(authOpts, auth.WithHospitalTTL(ttl))
	}

	authSvc, err := auth.NewService(authStore, codec, authOpts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	tripSvc, err := trips.NewService(tripStore, authStore.Agencies(context.Background()))
	if err != nil {
		log.Fatalf("trips service: %v", err)
	}
	clinicSvc, err := clinic.NewService(clinicStore)
	if err != nil {
		log.Fatalf("clinic service: %v", err)
	}
	notifySvc, err := notify.NewService(notifyStore)
	if err != nil {
		log.Fatalf("notify service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Auth:          authSvc,
		Codec:         codec,
		Trips:         tripSvc,
		Clinic:        clinicSvc,
		Notify:        notifySvc,
		Ready:         httpapi.ReadyProbe{DB: db},
		Version:       version,
		RatePerSecond: envInt("REHLA_RATE_PER_SEC", 20),
		RateBurst:     envInt("REHLA_RATE_BURST", 40),
	})

	addr := os.Getenv("REHLA_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting rehla-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func envDuration(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return d
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return v
}
