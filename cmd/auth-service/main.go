package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mundonegocio/auth-service/internal/config"
	"github.com/mundonegocio/auth-service/internal/ledger"
	ledgerredis "github.com/mundonegocio/auth-service/internal/ledger/redis"
	"github.com/mundonegocio/auth-service/internal/metrics"
	"github.com/mundonegocio/auth-service/internal/models"
	"github.com/mundonegocio/auth-service/internal/service"
	"github.com/mundonegocio/auth-service/internal/storage"
	storagemem "github.com/mundonegocio/auth-service/internal/storage/memory"
	"github.com/mundonegocio/auth-service/internal/storage/postgres"

	"github.com/google/uuid"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Хранилище учётных записей.
	str, err := openStorage(rootCtx, cfg, log)
	if err != nil {
		log.Error("storage_open_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	defer str.Close()

	// Реестр отозванных токенов.
	ldg, err := openLedger(cfg)
	if err != nil {
		log.Error("ledger_open_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	defer func() { _ = ldg.Close() }()

	// Сервис и метрики.
	srvc := service.New(str, ldg, cfg.Auth)
	srvc.SetMetrics(metrics.New(prometheus.DefaultRegisterer))
	log.Info("service_initialized")

	var ready int32 // 0 — not ready; 1 — ready
	httpAddr := cfg.HTTP.Addr()

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", metrics.Handler())

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	// Фоновая очистка просроченных записей реестра.
	startLedgerJanitor(rootCtx, ldg, log, 30*time.Minute)

	atomic.StoreInt32(&ready, 1)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}

// openStorage выбирает хранилище по store.mode. В режиме memory
// наполняется демо-набором пользователей дашборда.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	switch cfg.Store.Mode {
	case config.StoreModePostgres:
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		st, err := postgres.New(dbCtx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("postgres_connected")

		return st, nil
	default:
		st := storagemem.New()
		if err := seedDemoUsers(ctx, st); err != nil {
			return nil, err
		}
		log.Info("memory_storage_seeded")

		return st, nil
	}
}

// openLedger выбирает реестр отзыва по ledger.mode. Записи живут не
// дольше срока жизни refresh-токена.
func openLedger(cfg *config.Config) (ledger.Ledger, error) {
	retention := cfg.Auth.RefreshTokenTTL

	switch cfg.Ledger.Mode {
	case config.LedgerModeRedis:
		return ledgerredis.New(cfg.Ledger.RedisURL, "", retention)
	default:
		return ledger.NewMemoryLedger(retention), nil
	}
}

// seedDemoUsers создаёт демо-учётки дашборда продаж для локального
// запуска без БД. Пароли захэшированы так же, как и боевые.
func seedDemoUsers(ctx context.Context, st storage.Storage) error {
	now := time.Now().UTC()

	demo := []struct {
		email    string
		name     string
		role     models.Role
		country  string
		password string
	}{
		{"admin@mundonegocio.com", "Administrador", models.RoleAdmin, "peru", "admin123"},
		{"vendedor@mundonegocio.com", "Vendedor Demo", models.RoleUser, "peru", "vendedor123"},
	}

	for _, d := range demo {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		u := &models.User{
			ID:           uuid.New(),
			Email:        d.email,
			Name:         d.name,
			Role:         d.role,
			Country:      d.country,
			Active:       true,
			PasswordHash: string(hash),
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := st.SaveUser(ctx, u); err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
			return err
		}
	}

	return nil
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// startLedgerJanitor запускает фоновую задачу, которая периодически
// удаляет просроченные записи из реестра отзыва.
func startLedgerJanitor(ctx context.Context, ldg ledger.Ledger, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := ldg.DeleteExpired(ctx, time.Now().UTC()); err != nil {
					log.Error("ledger_janitor_failed", slog.String("err", err.Error()))
				}
			}
		}
	}()
}
