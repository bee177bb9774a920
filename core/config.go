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

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
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

	StorageConfig struct {
		Backend       string // "s3" | "local"
		S3Bucket      string
		S3Region      string
		LocalDir      string
		BaseURL       string
		MaxUploadSize int64 // bytes
	}

	DiagnosisConfig struct {
		SweepSecret      string
		SweepSchedule    string // cron expression; empty disables the in-process scheduler
		BatchSize        int
		SweepConcurrency int
		FetchTimeout     time.Duration
		UserAgent        string
		ProbeTemplates   []string // candidate probe URLs; {origin} and {id} placeholders
		RetryFailed      bool
		MaxFailedChecks  int
		StaleClaimAfter  time.Duration // processing claims older than this may be retaken; 0 disables
		WorkerQueueSize  int
	}

	Config struct {
		Debug                     bool
		TestMode                  bool
		Env                       string
		Build                     string
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		WorkDir                   string
		DefaultFromEmailAddr      string
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server    ServerConfig
		Database  DatabaseConfig
		Storage   StorageConfig
		Diagnosis DiagnosisConfig
	}
)

// NewConfig loads the app configuration from the environment;
// a config/.env.<env> file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Buddybow")
	v.SetDefault("secretKey", "h2(h!x)#*c2(#yg4h^$cegm2emypoq5-wer)enb$+57=dz&uox")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 5432)
	v.SetDefault("databaseName", "buddybow")
	v.SetDefault("databaseUser", "buddybow")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseDisableTls", true)

	v.SetDefault("storageBackend", "local")
	v.SetDefault("storageS3Bucket", "")
	v.SetDefault("storageS3Region", "")
	v.SetDefault("storageLocalDir", "uploads")
	v.SetDefault("storageBaseUrl", "http://localhost:8000/uploads")
	v.SetDefault("storageMaxUploadSize", int64(20<<20))

	v.SetDefault("diagSweepSecret", "")
	v.SetDefault("diagSweepSchedule", "")
	v.SetDefault("diagBatchSize", 50)
	v.SetDefault("diagSweepConcurrency", 10)
	v.SetDefault("diagFetchTimeout", 10*time.Second)
	v.SetDefault("diagUserAgent", "buddybow-diagnosis/1.0")
	v.SetDefault("diagProbeTemplates", []string{
		"{origin}/api/diagnosis/{id}",
		"{origin}/api/results/{id}",
	})
	v.SetDefault("diagRetryFailed", false)
	v.SetDefault("diagMaxFailedChecks", 5)
	v.SetDefault("diagStaleClaimAfter", 15*time.Minute)
	v.SetDefault("diagWorkerQueueSize", 64)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		Env:                       env,
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseUrl"),
		WorkDir:                   Getwd(),
		DefaultFromEmailAddr:      v.GetString("defaultFromEmail"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetInt("databasePort"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTls"),
		},
		Storage: StorageConfig{
			Backend:       v.GetString("storageBackend"),
			S3Bucket:      v.GetString("storageS3Bucket"),
			S3Region:      v.GetString("storageS3Region"),
			LocalDir:      v.GetString("storageLocalDir"),
			BaseURL:       v.GetString("storageBaseUrl"),
			MaxUploadSize: v.GetInt64("storageMaxUploadSize"),
		},
		Diagnosis: DiagnosisConfig{
			SweepSecret:      v.GetString("diagSweepSecret"),
			SweepSchedule:    v.GetString("diagSweepSchedule"),
			BatchSize:        v.GetInt("diagBatchSize"),
			SweepConcurrency: v.GetInt("diagSweepConcurrency"),
			FetchTimeout:     v.GetDuration("diagFetchTimeout"),
			UserAgent:        v.GetString("diagUserAgent"),
			ProbeTemplates:   v.GetStringSlice("diagProbeTemplates"),
			RetryFailed:      v.GetBool("diagRetryFailed"),
			MaxFailedChecks:  v.GetInt("diagMaxFailedChecks"),
			StaleClaimAfter:  v.GetDuration("diagStaleClaimAfter"),
			WorkerQueueSize:  v.GetInt("diagWorkerQueueSize"),
		},
	}
}

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmailAddr}
}
