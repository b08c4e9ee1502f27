// Package app 把配置装配成可运行的依赖图，cmd/api、cmd/admin、cmd/bbctl 共用
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"bugboard/internal/core/auth"
	"bugboard/internal/core/cache"
	"bugboard/internal/core/config"
	"bugboard/internal/core/database"
	"bugboard/internal/core/logger"
	"bugboard/internal/service"
	"bugboard/internal/storage"
	mdw "bugboard/internal/transport/http/middleware"
	"bugboard/internal/transport/http/router"
	"bugboard/internal/upload"
)

type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache // redis 未配置时为 nil
	Store storage.Store
	Svc   *service.Services
	JWT   *auth.JWTer
}

// OpenDB 连接数据库；autoMigrate 打开时顺便建表
func OpenDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Log:                l,
	})
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}
	return db, nil
}

func New(cfg *config.Config, l *zap.Logger) (*App, error) {
	db, err := OpenDB(cfg, l)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewOS(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	pipe := upload.New(store, l.Named("upload"), upload.Options{
		MaxFiles:     cfg.Upload.MaxFiles,
		MaxBytes:     cfg.Upload.MaxBytes,
		SniffContent: cfg.Upload.SniffContent,
	})
	c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if c != nil {
		l.Info("principal cache enabled", zap.String("redis", cfg.Redis.Addr))
	}
	svc := service.New(db, pipe, c, l, service.Options{
		UserDeletePolicy: cfg.Users.DeletePolicy,
		PrincipalTTL:     time.Duration(cfg.Redis.PrincipalTTLSec) * time.Second,
	})
	return &App{
		Cfg:   cfg,
		Log:   l,
		DB:    db,
		Cache: c,
		Store: store,
		Svc:   svc,
		JWT: &auth.JWTer{
			Secret:     []byte(cfg.JWT.Secret),
			Issuer:     cfg.JWT.Issuer,
			TTL:        time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
			RefreshTTL: time.Duration(cfg.JWT.RefreshTokenTTLMin) * time.Minute,
		},
	}, nil
}

// Refresher 本地 refresh token 优先，启用身份提供方时再走 OAuth2
func (a *App) Refresher() auth.Refresher {
	chain := auth.Chain{a.JWT}
	if a.Cfg.IdP.Enabled {
		chain = append(chain, auth.NewOAuth2Refresher(a.Cfg.IdP.ClientID, a.Cfg.IdP.ClientSecret, a.Cfg.IdP.TokenURL))
	}
	return chain
}

// ConfigureGin 生产环境切 release 模式，gin 自己的输出转进 zap
func ConfigureGin(cfg *config.Config, l *zap.Logger) {
	switch cfg.App.Env {
	case "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.ToWriter(l.Named("gin"), zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(l.Named("gin"), zapcore.ErrorLevel)
}

// RouterDeps HTTP 层依赖
func (a *App) RouterDeps() router.Deps {
	return router.Deps{
		Log:       a.Log,
		Svc:       a.Svc,
		JWT:       a.JWT,
		Refresher: a.Refresher(),
		Cookie: mdw.CookieConfig{
			Domain:   a.Cfg.Cookie.Domain,
			Secure:   a.Cfg.Cookie.Secure,
			SameSite: mdw.ParseSameSite(a.Cfg.Cookie.SameSite),
		},
		CORSOrigins: a.Cfg.CORS.AllowOrigins,
		Health:      a.health,
	}
}

func (a *App) health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if a.Cache != nil {
		if err := a.Cache.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
