package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogMode  string
	Database Database
	Media    Media
	Auth     Auth
	Otel     Otel

	CORSOrigins []string
}

type Database struct {
	Driver  string // sqlite3 or pgx
	DataDir string
	URL     string
}

type Media struct {
	Backend         string // local or gcs
	Dir             string
	BaseURL         string
	GCSBucket       string
	CredentialsFile string
}

type Auth struct {
	Secret   string
	TokenTTL time.Duration
}

type Otel struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRatio float64
	Insecure    bool
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:    get("PORT", "8080"),
		LogMode: get("LOG_MODE", "development"),
		Database: Database{
			Driver:  get("DB_DRIVER", "sqlite3"),
			DataDir: get("DATA_DIR", "./data"),
			URL:     get("DATABASE_URL", ""),
		},
		Media: Media{
			Backend:         get("MEDIA_BACKEND", "local"),
			Dir:             get("MEDIA_DIR", "./media"),
			BaseURL:         get("MEDIA_BASE_URL", "/media"),
			GCSBucket:       get("GCS_BUCKET", ""),
			CredentialsFile: get("GCS_CREDENTIALS_FILE", ""),
		},
		Auth: Auth{
			Secret:   get("JWT_SECRET_KEY", ""),
			TokenTTL: time.Duration(getInt("ACCESS_TOKEN_TTL", 86400)) * time.Second,
		},
		Otel: Otel{
			Enabled:     getBool("OTEL_ENABLED", false),
			ServiceName: get("SERVICE_NAME", "foodgram"),
			Endpoint:    get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			SampleRatio: getFloat("OTEL_SAMPLER_RATIO", 0.1),
			Insecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
		CORSOrigins: getList("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "sqlite3":
	case "pgx":
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the pgx driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Media.Backend {
	case "local":
	case "gcs":
		if c.Media.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required for the gcs media backend")
		}
	default:
		return fmt.Errorf("unsupported MEDIA_BACKEND %q", c.Media.Backend)
	}
	if c.Auth.Secret == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	return nil
}

func get(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func getInt(name string, def int) int {
	i, err := strconv.Atoi(get(name, ""))
	if err != nil {
		return def
	}
	return i
}

func getFloat(name string, def float64) float64 {
	f, err := strconv.ParseFloat(get(name, ""), 64)
	if err != nil {
		return def
	}
	return f
}

func getBool(name string, def bool) bool {
	switch strings.ToLower(get(name, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func getList(name string, def []string) []string {
	raw := get(name, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
