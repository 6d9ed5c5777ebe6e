package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/cleaning-calendar/internal/api/grpcapi"
	"github.com/Leganyst/cleaning-calendar/internal/api/httpapi"
	"github.com/Leganyst/cleaning-calendar/internal/config"
	"github.com/Leganyst/cleaning-calendar/internal/db"
	"github.com/Leganyst/cleaning-calendar/internal/lock"
	"github.com/Leganyst/cleaning-calendar/internal/logger"
	"github.com/Leganyst/cleaning-calendar/internal/model"
	"github.com/Leganyst/cleaning-calendar/internal/repository"
	"github.com/Leganyst/cleaning-calendar/internal/retention"
	"github.com/Leganyst/cleaning-calendar/internal/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("CALENDAR_CONFIG"), "path to config file (yaml)")
	flag.Parse()

	// 1. Конфиг: файл + env CALENDAR_*.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// 2. Логгер.
	zl, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	// 3. БД через GORM и миграции.
	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		zl.Fatal("init db", zap.Error(err))
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		zl.Fatal("auto migrate", zap.Error(err))
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		zl.Fatal("sql DB", zap.Error(err))
	}
	defer sqlDB.Close()

	// 4. Блокировка заявок: Redis или ничего.
	var locker lock.Locker = lock.NopLocker{}
	if cfg.Redis.Enabled {
		rl, err := lock.NewRedisLocker(&cfg.Redis, zl)
		if err != nil {
			zl.Fatal("init redis locker", zap.Error(err))
		}
		defer rl.Close()
		locker = rl
	}

	// 5. Репозитории и сервис.
	bookingRepo := repository.NewGormBookingRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)
	bookingSvc := service.NewBookingService(bookingRepo, eventRepo, locker, zl.Named("booking"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 6. Очистка старых записей по расписанию.
	if cfg.Retention.Enabled {
		job := retention.NewJob(zl.Named("retention"), &cfg.Retention, bookingSvc, locker)
		if err := job.Start(ctx); err != nil {
			zl.Fatal("start retention job", zap.Error(err))
		}
		defer job.Stop()
	}

	// 7. HTTP API.
	var httpServer *http.Server
	if cfg.Server.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		router := httpapi.NewRouter(httpapi.NewHandler(bookingSvc, zl), zl.Named("http"))
		httpServer = &http.Server{Addr: cfg.Server.HTTPAddr, Handler: router}

		go func() {
			zl.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Fatal("http serve", zap.Error(err))
			}
		}()
	}

	// 8. gRPC API.
	var grpcStop func()
	if cfg.Server.GRPCAddr != "" {
		grpcServer, health := grpcapi.NewGRPCServer(grpcapi.NewServer(bookingSvc, zl), zl.Named("grpc"))

		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			zl.Fatal("grpc listen", zap.String("addr", cfg.Server.GRPCAddr), zap.Error(err))
		}

		go func() {
			zl.Info("grpc server listening", zap.String("addr", cfg.Server.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil {
				zl.Fatal("grpc serve", zap.Error(err))
			}
		}()
		grpcStop = func() {
			health.Shutdown()
			grpcServer.GracefulStop()
		}
	}

	// 9. Грейсфул-шатдаун по сигналу.
	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zl.Warn("http shutdown", zap.Error(err))
		}
	}
	if grpcStop != nil {
		grpcStop()
	}
}
