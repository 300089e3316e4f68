package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"tinyapps/internal/docstore"
)

type Config struct {
	Port      string
	Env       string
	StorePath string
	StoreDSN  string
	Model     string
	Snapshot  SnapshotConfig
}

// SnapshotConfig configures the optional S3 mirror for store snapshots.
type SnapshotConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	storePath := flag.String("store", "", "path to the program store file")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	path := strings.TrimSpace(*storePath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("STORE_PATH"))
	}
	if path == "" {
		path = docstore.DefaultPath("programs")
	}

	return &Config{
		Port:      *port,
		Env:       env,
		StorePath: path,
		StoreDSN:  strings.TrimSpace(os.Getenv("DOCSTORE_PG_DSN")),
		Model:     strings.TrimSpace(os.Getenv("LLM_MODEL")),
		Snapshot:  loadSnapshotConfig(env),
	}, nil
}

func loadSnapshotConfig(env string) SnapshotConfig {
	endpoint := resolveSnapshotEndpoint(env)
	return SnapshotConfig{
		Enabled:   endpoint != "" && strings.TrimSpace(os.Getenv("SNAPSHOT_S3_BUCKET")) != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    strings.TrimSpace(os.Getenv("SNAPSHOT_S3_BUCKET")),
		UseSSL:    resolveSnapshotUseSSL(env),
	}
}

func resolveSnapshotEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_MINIO_ENDPOINT")), strings.TrimSpace(os.Getenv("SNAPSHOT_S3_ENDPOINT")))
	}
	return strings.TrimSpace(os.Getenv("SNAPSHOT_S3_ENDPOINT"))
}

func resolveSnapshotUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("SNAPSHOT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
