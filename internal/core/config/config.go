package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret             string
	Issuer             string
	AccessTokenTTLMin  int
	RefreshTokenTTLMin int
}

// IdP 外部身份提供方（OAuth2 refresh_token 交换）；未启用时用本地 JWT 刷新
type IdP struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	TokenURL     string
}

type Cookie struct {
	Domain   string
	Secure   bool
	SameSite string // lax / strict / none
}

type Redis struct {
	Addr            string `mapstructure:"addr"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	PrincipalTTLSec int    `mapstructure:"principalTTLSec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Storage struct {
	Root string
}

type Upload struct {
	MaxFiles     int
	MaxBytes     int64
	SniffContent bool
}

type Users struct {
	DeletePolicy string // cascade / block
}

type CORS struct {
	AllowOrigins []string
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	IdP     IdP `mapstructure:"idp"`
	Cookie  Cookie
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Storage Storage
	Upload  Upload
	Users   Users
	CORS    CORS `mapstructure:"cors"`
}

func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("read config: %v", err)
	}
	return c
}

// Read 同 Load，但把错误交给调用方（CLI 与测试用）
func Read(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 15)
	v.SetDefault("app.http.writeTimeoutSec", 30)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("log.level", "info")
	// 环境变量只覆盖已知 key，敏感项给空默认值
	v.SetDefault("jwt.secret", "")
	v.SetDefault("db.password", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("idp.clientSecret", "")
	v.SetDefault("jwt.issuer", "bugboard")
	v.SetDefault("jwt.accessTokenTTLMin", 15)
	v.SetDefault("jwt.refreshTokenTTLMin", 60*24*7)
	v.SetDefault("cookie.sameSite", "lax")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:bugboard.db")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 5)
	v.SetDefault("redis.principalTTLSec", 300)
	v.SetDefault("storage.root", "./data/uploads")
	v.SetDefault("upload.maxFiles", 3)
	v.SetDefault("upload.maxBytes", 5<<20)
	v.SetDefault("upload.sniffContent", true)
	v.SetDefault("users.deletePolicy", "cascade")
}
