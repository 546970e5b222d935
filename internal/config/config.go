// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config はアプリケーションの設定を保持する構造体です。起動後は変更しません。
type Config struct {
	// サーバー設定
	Port     string `env:"PORT" envDefault:"5000"`
	GinMode  string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// CORS設定
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// 認証設定
	JWTSecret          string `env:"JWT_SECRET"`
	BcryptCost         int    `env:"BCRYPT_COST" envDefault:"10"`
	RevalidateAuthUser bool   `env:"AUTH_REVALIDATE_USER" envDefault:"false"`

	// データベース設定
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"mongo"`
	DatabaseURL    string `env:"DATABASE_CONNECTION"`
	DatabaseName   string `env:"DATABASE_NAME" envDefault:"blog"`

	// アップロード設定
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"2000000"`

	// ファイル削除キュー設定（未指定の場合はリクエスト内で削除）
	QueueRedisURL    string        `env:"QUEUE_REDIS_URL"`
	CleanupRecordTTL time.Duration `env:"CLEANUP_RECORD_TTL" envDefault:"24h"`
}

// Load は環境変数から設定を読み込みます。
// .env.local / .env ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

func (c *Config) normalize() {
	origins := make([]string, 0, len(c.CORSAllowedOrigins))
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	switch c.DatabaseDriver {
	case DriverMongo:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_CONNECTION is required when DATABASE_DRIVER=mongo")
		}
	case DriverMemory:
		// ローカル開発用
		if c.GinMode == "release" {
			return fmt.Errorf("DATABASE_DRIVER=memory is not allowed in release mode")
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER: %q", c.DatabaseDriver)
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS is required")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	return nil
}
