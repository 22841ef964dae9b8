package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the application configuration, loaded once at init.
var Conf *Config

func init() {
	conf, err := NewConfig()
	if err != nil {
		log.Fatalf("core.NewConfig(): %v", err)
	}
	Conf = conf
}

type (
	Config struct {
		Env                       string
		Debug                     bool
		TestMode                  bool
		Build                     string
		WorkDir                   string
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		DefaultFromEmailStr       string
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Practice PracticeConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		DebugAddress              string
		AllowedOrigins            []string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// StorageConfig configures where uploaded files go: "local" or "b2".
	StorageConfig struct {
		Driver      string
		LocalDir    string
		BaseURL     string
		B2AccountID string
		B2AppKey    string
		B2Bucket    string
	}

	PracticeConfig struct {
		BoltPath string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmailStr)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (d DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "ESL Class")
	v.SetDefault("secretKey", "k2#x9m!c4vq^8w@lz0r$y7t&fn3j(e6)hd1u*s5gp-b=")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "ESL Class <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", 5001)
	v.SetDefault("serverDebugAddress", ":4001")
	v.SetDefault("serverAllowedOrigins", []string{"*"})
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("serverReadTimeout", 5*time.Second)
	v.SetDefault("serverWriteTimeout", 10*time.Second)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "eslclass")
	v.SetDefault("dbUser", "eslclass")
	v.SetDefault("dbPassword", "eslclass")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("storageDriver", "local")
	v.SetDefault("storageLocalDir", "media")
	v.SetDefault("storageBaseURL", "http://localhost:5001/media")
	v.SetDefault("storageB2AccountID", "")
	v.SetDefault("storageB2AppKey", "")
	v.SetDefault("storageB2Bucket", "")

	v.SetDefault("practiceBoltPath", filepath.Join("data", "practice.db"))
}

// NewConfig reads the configuration from defaults, config/.env.<env> and the environment.
// Environment variables are prefixed with the upper-cased env name, e.g. PROD_DBHOST.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, fmt.Errorf("godotenv.Load(%s): %w", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("os.Stat(%s): %w", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		Build:                     v.GetString("build"),
		WorkDir:                   wd,
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		DefaultFromEmailStr:       v.GetString("defaultFromEmail"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetInt("serverPort"),
			DebugAddress:              v.GetString("serverDebugAddress"),
			AllowedOrigins:            v.GetStringSlice("serverAllowedOrigins"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			ReadTimeout:               v.GetDuration("serverReadTimeout"),
			WriteTimeout:              v.GetDuration("serverWriteTimeout"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Storage: StorageConfig{
			Driver:      v.GetString("storageDriver"),
			LocalDir:    v.GetString("storageLocalDir"),
			BaseURL:     v.GetString("storageBaseURL"),
			B2AccountID: v.GetString("storageB2AccountID"),
			B2AppKey:    v.GetString("storageB2AppKey"),
			B2Bucket:    v.GetString("storageB2Bucket"),
		},
		Practice: PracticeConfig{
			BoltPath: v.GetString("practiceBoltPath"),
		},
	}, nil
}
