package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		DebugAddress              string
		Host                      string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Address   string
		Password  string
		DB        int
		KeyPrefix string
	}

	SessionConfig struct {
		CookieName     string
		CookieSecure   bool
		BootstrapDelay time.Duration
		LoginPath      string
		HomePath       string
		AdminLoginPath string
		AdminHomePath  string
	}

	Config struct {
		Env                           string // DEV (local; default), TEST, QA, PROD
		Debug                         bool
		TestMode                      bool
		AppName                       string
		Build                         string
		WorkDir                       string
		SecretKey                     string
		FrontendBaseURL               string
		SendgridApiKey                string
		RollbarToken                  string
		PasswordResetTimeoutDelta     time.Duration
		EmailVerificationTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Session  SessionConfig

		defaultFromEmail string
	}
)

// DefaultFromEmail parses the configured sender address, falling back to the app name as display name.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig reads the configuration from the environment (and the matching .env file, if any).
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", env == "DEV")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("appName", "Academia")
	conf.SetDefault("build", "develop")
	conf.SetDefault("workDir", Getwd())
	conf.SetDefault("secretKey", "0x7-vn$e=3nr+ep&u1)tbd!f#l%4+c^xv9hq0m@w2+d8(j6a)k")
	conf.SetDefault("frontendBaseURL", "http://localhost:8000")
	conf.SetDefault("defaultFromEmail", "Academia <noreply@localhost>")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("emailVerificationTimeoutDelta", 7*24*time.Hour)

	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugAddress", ":4000")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("server.disableReqLogs", false)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "academia")
	conf.SetDefault("database.user", "academia")
	conf.SetDefault("database.password", "academia")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	conf.SetDefault("redis.address", "127.0.0.1:6379")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)
	conf.SetDefault("redis.keyPrefix", "academia")

	conf.SetDefault("session.cookieName", "academia_session")
	conf.SetDefault("session.cookieSecure", env == "PROD")
	conf.SetDefault("session.bootstrapDelay", 100*time.Millisecond)
	conf.SetDefault("session.loginPath", "/auth/login")
	conf.SetDefault("session.homePath", "/dashboard")
	conf.SetDefault("session.adminLoginPath", "/admin/login")
	conf.SetDefault("session.adminHomePath", "/admin/dashboard")

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(conf.GetString("workDir"), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	// nested keys are read from env vars like DEV_SERVER_ADDRESS
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	return &Config{
		Env:                           env,
		Debug:                         conf.GetBool("debug"),
		TestMode:                      conf.GetBool("testMode"),
		AppName:                       conf.GetString("appName"),
		Build:                         conf.GetString("build"),
		WorkDir:                       conf.GetString("workDir"),
		SecretKey:                     conf.GetString("secretKey"),
		FrontendBaseURL:               conf.GetString("frontendBaseURL"),
		SendgridApiKey:                conf.GetString("sendgridApiKey"),
		RollbarToken:                  conf.GetString("rollbarToken"),
		PasswordResetTimeoutDelta:     conf.GetDuration("passwordResetTimeoutDelta"),
		EmailVerificationTimeoutDelta: conf.GetDuration("emailVerificationTimeoutDelta"),
		Server: ServerConfig{
			Address:                   conf.GetString("server.address"),
			DebugAddress:              conf.GetString("server.debugAddress"),
			Host:                      conf.GetString("server.host"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			DisableReqLogs:            conf.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Address:   conf.GetString("redis.address"),
			Password:  conf.GetString("redis.password"),
			DB:        conf.GetInt("redis.db"),
			KeyPrefix: conf.GetString("redis.keyPrefix"),
		},
		Session: SessionConfig{
			CookieName:     conf.GetString("session.cookieName"),
			CookieSecure:   conf.GetBool("session.cookieSecure"),
			BootstrapDelay: conf.GetDuration("session.bootstrapDelay"),
			LoginPath:      conf.GetString("session.loginPath"),
			HomePath:       conf.GetString("session.homePath"),
			AdminLoginPath: conf.GetString("session.adminLoginPath"),
			AdminHomePath:  conf.GetString("session.adminHomePath"),
		},
		defaultFromEmail: conf.GetString("defaultFromEmail"),
	}
}

// NewTestConfig returns a Config suitable for package tests: no .env lookup, short timeouts.
func NewTestConfig() *Config {
	return &Config{
		Env:                           "TEST",
		TestMode:                      true,
		AppName:                       "Academia",
		Build:                         "test",
		SecretKey:                     "secret",
		FrontendBaseURL:               "http://localhost:8000",
		PasswordResetTimeoutDelta:     3 * 24 * time.Hour,
		EmailVerificationTimeoutDelta: 7 * 24 * time.Hour,
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			DisableReqLogs:            true,
		},
		Redis: RedisConfig{KeyPrefix: "academia-test"},
		Session: SessionConfig{
			CookieName:     "academia_session",
			BootstrapDelay: 10 * time.Millisecond,
			LoginPath:      "/auth/login",
			HomePath:       "/dashboard",
			AdminLoginPath: "/admin/login",
			AdminHomePath:  "/admin/dashboard",
		},
		defaultFromEmail: "noreply@localhost",
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s, build %s)", c.AppName, c.Env, c.Build)
}
