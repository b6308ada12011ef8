package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/blog-service/internal/config"
	"github.com/pribylovaa/blog-service/internal/metrics"
	"github.com/pribylovaa/blog-service/internal/service"
	"github.com/pribylovaa/blog-service/internal/storage"
	"github.com/pribylovaa/blog-service/internal/storage/local"
	"github.com/pribylovaa/blog-service/internal/storage/memory"
	blobminio "github.com/pribylovaa/blog-service/internal/storage/minio"
	"github.com/pribylovaa/blog-service/internal/storage/postgres"
	blobs3 "github.com/pribylovaa/blog-service/internal/storage/s3"
	bloghttp "github.com/pribylovaa/blog-service/internal/transport/http"
)

// pinger — хранилище, чью доступность проверяет /healthz.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting blog-service", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	dbCtx, dbCancel := context.WithTimeout(rootCtx, 30*time.Second)
	st, err := openStorage(dbCtx, cfg.DB)
	dbCancel()
	if err != nil {
		log.Error("storage_init_failed", slog.String("driver", cfg.DB.Driver), slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer st.Close()
	log.Info("storage_initialized", slog.String("driver", cfg.DB.Driver))

	blobCtx, blobCancel := context.WithTimeout(rootCtx, 15*time.Second)
	blobs, uploads, err := openBlobStore(blobCtx, cfg.Blob)
	blobCancel()
	if err != nil {
		log.Error("blob_store_init_failed", slog.String("driver", cfg.Blob.Driver), slog.String("err", err.Error()))
		st.Close()
		os.Exit(1)
	}
	log.Info("blob_store_initialized", slog.String("driver", cfg.Blob.Driver))

	m := metrics.New(prometheus.DefaultRegisterer)
	svc := service.New(st, blobs, cfg.Auth, cfg.Upload, m)
	log.Info("service_initialized")

	apiHandler := bloghttp.NewRouter(svc, bloghttp.Options{
		Logger:         log,
		Metrics:        m,
		Timeout:        cfg.Timeouts.Request,
		BasePath:       cfg.HTTP.BasePath,
		SecureCookies:  cfg.IsProd(),
		MaxUploadBytes: cfg.Upload.MaxSizeBytes,
		Uploads:        uploads,
	})

	// Ops: readiness/liveness/metrics на отдельном листенере.
	var ready int32 // 0 — not ready; 1 — ready

	opsMux := http.NewServeMux()
	opsMux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		if p, ok := st.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := p.Ping(ctx); err != nil {
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsMux.Handle("/metrics", promhttp.Handler())

	opsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr(),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("ops_listen_start", slog.String("addr", opsSrv.Addr))
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops_serve_failed", slog.String("err", err.Error()))
		}
	}()

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           apiHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		st.Close()
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr), slog.String("base_path", cfg.HTTP.BasePath))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("ops_shutdown_incomplete", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}

// openStorage создаёт реляционное хранилище по db.driver.
// Для postgres сразу применяются встроенные миграции.
func openStorage(ctx context.Context, cfg config.DBConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DBDriverMemory:
		return memory.New(), nil
	case config.DBDriverPostgres:
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}

		return pg, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

// openBlobStore создаёт хранилище картинок по blob.driver.
// Для local дополнительно возвращается раздача файлов через API-листенер.
func openBlobStore(ctx context.Context, cfg config.BlobConfig) (storage.BlobStore, *bloghttp.StaticFiles, error) {
	switch cfg.Driver {
	case config.BlobDriverLocal:
		bs, err := local.New(cfg.Local.Dir, cfg.Local.PublicPrefix)
		if err != nil {
			return nil, nil, err
		}

		return bs, &bloghttp.StaticFiles{Prefix: bs.Prefix(), Dir: bs.Dir()}, nil
	case config.BlobDriverMinio:
		bs, err := blobminio.New(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}

		return bs, nil, nil
	case config.BlobDriverS3:
		bs, err := blobs3.New(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}

		return bs, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
