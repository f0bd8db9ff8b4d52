package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"meshmeta/internal/gateway/entity"
)

const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

type Config struct {
	Port         string
	Env          string
	LogLevel     string
	Store        StoreConfig
	Limits       entity.Limits
	Orchestrator OrchestratorConfig
}

type StoreConfig struct {
	Backend       string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	S3            S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (c S3Config) Complete() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

type OrchestratorConfig struct {
	URL     string
	Timeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}
	return FromEnv(*port)
}

// FromEnv builds the configuration from environment variables only.
func FromEnv(port string) (*Config, error) {
	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}
	limits, err := loadLimits()
	if err != nil {
		return nil, err
	}
	store, err := loadStoreConfig(env)
	if err != nil {
		return nil, err
	}
	orchestrator, err := loadOrchestratorConfig()
	if err != nil {
		return nil, err
	}
	return &Config{
		Port:         port,
		Env:          env,
		LogLevel:     firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "info"),
		Store:        store,
		Limits:       limits,
		Orchestrator: orchestrator,
	}, nil
}

func loadStoreConfig(env string) (StoreConfig, error) {
	cfg := StoreConfig{
		Backend:       strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))),
		MongoURI:      strings.TrimSpace(os.Getenv("MONGO_URI")),
		MongoDatabase: firstNonEmpty(strings.TrimSpace(os.Getenv("MONGO_DATABASE")), "meshmeta"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		S3: S3Config{
			Endpoint:  strings.TrimSpace(os.Getenv("DOCSTORE_S3_ENDPOINT")),
			Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("DOCSTORE_S3_REGION")), "us-east-1"),
			AccessKey: strings.TrimSpace(os.Getenv("DOCSTORE_S3_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("DOCSTORE_S3_SECRET_KEY")),
			Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("DOCSTORE_S3_BUCKET")), "meshmeta-documents"),
			UseSSL:    resolveUseSSL(env),
		},
	}
	if isLocal(env) {
		cfg = withLocalDefaults(cfg)
	}
	if cfg.Backend == "" {
		cfg.Backend = inferBackend(cfg)
	}
	switch cfg.Backend {
	case BackendMemory:
	case BackendMongo:
		if cfg.MongoURI == "" {
			return cfg, fmt.Errorf("STORE_BACKEND=mongo requires MONGO_URI")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendS3:
		if !cfg.S3.Complete() {
			return cfg, fmt.Errorf("STORE_BACKEND=s3 requires endpoint, access key, secret key and bucket")
		}
	default:
		return cfg, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Backend)
	}
	return cfg, nil
}

func inferBackend(cfg StoreConfig) string {
	switch {
	case cfg.MongoURI != "":
		return BackendMongo
	case cfg.DatabaseURL != "":
		return BackendPostgres
	case cfg.S3.Complete():
		return BackendS3
	default:
		return BackendMemory
	}
}

func loadLimits() (entity.Limits, error) {
	def := entity.DefaultLimits()
	var (
		l   entity.Limits
		err error
	)
	if l.MinCPU, err = intEnv("RESOURCE_MIN_CPU", def.MinCPU); err != nil {
		return l, err
	}
	if l.MaxCPU, err = intEnv("RESOURCE_MAX_CPU", def.MaxCPU); err != nil {
		return l, err
	}
	if l.MinRAMGB, err = intEnv("RESOURCE_MIN_RAM_GB", def.MinRAMGB); err != nil {
		return l, err
	}
	if l.MaxRAMGB, err = intEnv("RESOURCE_MAX_RAM_GB", def.MaxRAMGB); err != nil {
		return l, err
	}
	if l.MinCPU < 1 || l.MinCPU > l.MaxCPU {
		return l, fmt.Errorf("invalid cpu limits [%d, %d]", l.MinCPU, l.MaxCPU)
	}
	if l.MinRAMGB < 1 || l.MinRAMGB > l.MaxRAMGB {
		return l, fmt.Errorf("invalid ram limits [%dGB, %dGB]", l.MinRAMGB, l.MaxRAMGB)
	}
	return l, nil
}

func loadOrchestratorConfig() (OrchestratorConfig, error) {
	cfg := OrchestratorConfig{
		URL:     strings.TrimRight(strings.TrimSpace(os.Getenv("ORCHESTRATOR_URL")), "/"),
		Timeout: 30 * time.Second,
	}
	if raw := strings.TrimSpace(os.Getenv("ORCHESTRATOR_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid ORCHESTRATOR_TIMEOUT %q", raw)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func resolveUseSSL(env string) bool {
	if isLocal(env) {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("DOCSTORE_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
