package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

type Config struct {
	Recognition RecognitionConfig
	OpenAI      OpenAIConfig
	Gemini      GeminiConfig
	Ollama      OllamaConfig
	Auth        AuthConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	MariaDB     MariaDBConfig
	S3          S3Config
	Camera      CameraConfig
	Web         WebConfig
	Prices      PricesConfig
}

type RecognitionConfig struct {
	Provider string // gemini, openai or ollama (defaults to gemini)
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
	Model  string // defaults to gemini-3-flash-preview
}

type OllamaConfig struct {
	URL   string // defaults to http://localhost:11434
	Model string // defaults to llama3.2-vision:11b
}

type AuthConfig struct {
	VerifyThreshold float64 // confidence must be strictly greater than this
	LogCap          int     // maximum number of retained auth log entries
	TokenTTLMinutes int     // lifetime of access tokens issued on authentication
	DemoEmail       string  // email stored on the enrolled profile
	MaxDevices      int     // controllers kept in memory before idle ones are evicted
	IdleMinutes     int     // idle controllers older than this are dropped from memory
}

type StorageConfig struct {
	Backend string // file, postgres, mariadb or s3
	Path    string // JSON file for the file backend
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MariaDBConfig struct {
	DSN string // e.g. visionauth:visionauth@tcp(mariadb:3306)/visionauth
}

type S3Config struct {
	Endpoint  string // optional, for MinIO and other S3-compatible stores
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

type CameraConfig struct {
	Device string // e.g. /dev/video0
	Format string // ffmpeg input format, defaults to v4l2
}

type WebConfig struct {
	Secret         string   // signs device cookies and access tokens
	AllowedOrigins []string // CORS whitelist in addition to localhost
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

type ModelPricing struct {
	Standard RequestPricing `yaml:"standard"`
}

type RequestPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// Default values used when the environment does not override them.
const (
	DefaultProvider        = "gemini"
	DefaultVerifyThreshold = 0.85
	DefaultLogCap          = 10
	DefaultTokenTTLMinutes = 15
	DefaultDemoEmail       = "demo@visionauth.io"
	DefaultMaxDevices      = 1000
	DefaultIdleMinutes     = 30
	DefaultStorageBackend  = "file"
	DefaultStoragePath     = "visionauth.json"
	DefaultCameraFormat    = "v4l2"
)

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envUnitFloat reads an environment variable as a float in [0, 1).
// Returns the default value if the env var is unset, empty, or out of range.
func envUnitFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		return f
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// Load reads configuration from the environment and the embedded price table.
func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	return &Config{
		Recognition: RecognitionConfig{
			Provider: strings.ToLower(envString("RECOGNITION_PROVIDER", DefaultProvider)),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  os.Getenv("GEMINI_MODEL"),
		},
		Ollama: OllamaConfig{
			URL:   os.Getenv("OLLAMA_URL"),
			Model: os.Getenv("OLLAMA_MODEL"),
		},
		Auth: AuthConfig{
			VerifyThreshold: envUnitFloat("AUTH_VERIFY_THRESHOLD", DefaultVerifyThreshold),
			LogCap:          envInt("AUTH_LOG_CAP", DefaultLogCap),
			TokenTTLMinutes: envInt("AUTH_TOKEN_TTL_MINUTES", DefaultTokenTTLMinutes),
			DemoEmail:       envString("AUTH_DEMO_EMAIL", DefaultDemoEmail),
			MaxDevices:      envInt("AUTH_MAX_DEVICES", DefaultMaxDevices),
			IdleMinutes:     envInt("AUTH_IDLE_MINUTES", DefaultIdleMinutes),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(envString("STORAGE_BACKEND", DefaultStorageBackend)),
			Path:    envString("STORAGE_PATH", DefaultStoragePath),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    envString("S3_REGION", "us-east-1"),
			Bucket:    os.Getenv("S3_BUCKET"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Prefix:    os.Getenv("S3_PREFIX"),
		},
		Camera: CameraConfig{
			Device: os.Getenv("CAMERA_DEVICE"),
			Format: envString("CAMERA_FORMAT", DefaultCameraFormat),
		},
		Web: WebConfig{
			Secret:         os.Getenv("WEB_SECRET"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Prices: prices,
	}
}

// GetModelPricing returns pricing for a specific model, with fallback defaults
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	// Return zero pricing if model not found
	return ModelPricing{}
}
