package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"5000"`
	GinMode  string `env:"GIN_MODE" envDefault:"release"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// chat backend: ollama | openai | vertex
	ChatProvider string        `env:"CHAT_PROVIDER" envDefault:"ollama"`
	ChatEndpoint string        `env:"CHAT_ENDPOINT" envDefault:"http://localhost:11434/api/chat"`
	ChatModel    string        `env:"CHAT_MODEL" envDefault:"deepseek-r1:8b"`
	ChatTimeout  time.Duration `env:"CHAT_TIMEOUT" envDefault:"120s"`
	PersonaFile  string        `env:"PERSONA_FILE"`
	HistoryTTL   time.Duration `env:"HISTORY_TTL" envDefault:"168h"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	VertexProject  string `env:"VERTEX_PROJECT_ID"`
	VertexLocation string `env:"VERTEX_LOCATION" envDefault:"us-central1"`

	// speech backend: vosk | google
	STTEngine        string `env:"STT_ENGINE" envDefault:"vosk"`
	VoskModelPath    string `env:"VOSK_MODEL_PATH" envDefault:"models/vosk-model-en-us-0.22"`
	STTLanguage      string `env:"STT_LANGUAGE" envDefault:"en-US"`
	TargetSampleRate int    `env:"TARGET_SAMPLE_RATE" envDefault:"16000"`
	// empty means look up ffmpeg on PATH, "-" disables the fallback decoder
	FFmpegPath string `env:"FFMPEG_PATH"`

	TempVoiceDir           string        `env:"TEMP_VOICE_DIR" envDefault:"tempvoice"`
	TempVoiceRetention     time.Duration `env:"TEMP_VOICE_RETENTION" envDefault:"24h"`
	TempVoiceSweepInterval time.Duration `env:"TEMP_VOICE_SWEEP_INTERVAL" envDefault:"1h"`

	StaticDir   string `env:"STATIC_DIR" envDefault:"static"`
	TemplateDir string `env:"TEMPLATE_DIR" envDefault:"templates"`

	// optional backing services; empty disables them
	RedisAddr    string        `env:"REDIS_ADDR"`
	PostgresURI  string        `env:"POSTGRES_URI"`
	MongoURI     string        `env:"MONGO_URI"`
	MongoDB      string        `env:"MONGO_DB" envDefault:"whalechat"`
	SpeechLogTTL time.Duration `env:"SPEECH_LOG_TTL" envDefault:"72h"`
	GCSBucket    string        `env:"GCS_BUCKET"`
	GCSPrefix    string        `env:"GCS_PREFIX" envDefault:"failed-speech"`
	// service account key for the Google clients; empty uses ADC
	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`

	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`
	// optional iss/aud claims enforced when auth is enabled
	AuthJWTIssuer   string `env:"AUTH_JWT_ISSUER"`
	AuthJWTAudience string `env:"AUTH_JWT_AUDIENCE"`
	MetricsPath     string `env:"METRICS_PATH" envDefault:"/metrics"`
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	cfg.ChatProvider = strings.ToLower(strings.TrimSpace(cfg.ChatProvider))
	cfg.STTEngine = strings.ToLower(strings.TrimSpace(cfg.STTEngine))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.ChatProvider {
	case "ollama":
		if c.ChatEndpoint == "" {
			errs = append(errs, errors.New("CHAT_ENDPOINT is required for the ollama provider"))
		}
	case "openai":
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY or OPENAI_BASE_URL is required for the openai provider"))
		}
	case "vertex":
		if c.VertexProject == "" {
			errs = append(errs, errors.New("VERTEX_PROJECT_ID is required for the vertex provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("CHAT_PROVIDER must be ollama, openai or vertex, got %q", c.ChatProvider))
	}

	switch c.STTEngine {
	case "vosk", "google":
	default:
		errs = append(errs, fmt.Errorf("STT_ENGINE must be vosk or google, got %q", c.STTEngine))
	}

	if c.ChatTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CHAT_TIMEOUT must be positive, got %s", c.ChatTimeout))
	}
	if c.TargetSampleRate < 8000 || c.TargetSampleRate > 48000 {
		errs = append(errs, fmt.Errorf("TARGET_SAMPLE_RATE must be between 8000 and 48000, got %d", c.TargetSampleRate))
	}
	if c.TempVoiceDir == "" {
		errs = append(errs, errors.New("TEMP_VOICE_DIR is required"))
	}
	if c.TempVoiceRetention < 0 || c.TempVoiceSweepInterval < 0 {
		errs = append(errs, errors.New("TEMP_VOICE_RETENTION and TEMP_VOICE_SWEEP_INTERVAL must not be negative"))
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("METRICS_PATH must start with /, got %q", c.MetricsPath))
	}
	return errors.Join(errs...)
}

func (c *Config) AuthEnabled() bool { return c.AuthJWTSecret != "" }

func (c *Config) Addr() string { return ":" + c.Port }
