// Package bootstrap builds the dependency graph shared by the server and the
// console client. Optional backends resolve to nil when unconfigured.
package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/yoockh/whalechat/config"
	"github.com/yoockh/whalechat/internal/audio"
	"github.com/yoockh/whalechat/internal/cache"
	"github.com/yoockh/whalechat/internal/metrics"
	"github.com/yoockh/whalechat/internal/providers/llm"
	"github.com/yoockh/whalechat/internal/providers/stt"
	"github.com/yoockh/whalechat/internal/repositories/kv"
	mongorepo "github.com/yoockh/whalechat/internal/repositories/mongo"
	pgrepo "github.com/yoockh/whalechat/internal/repositories/postgres"
	"github.com/yoockh/whalechat/internal/services"
	"github.com/yoockh/whalechat/internal/storage"
	"github.com/yoockh/whalechat/internal/workers"
)

const (
	backendInitTimeout = 30 * time.Second
	cacheKeyPrefix     = "whalechat:"
)

// Closers collects shutdown hooks in registration order.
type Closers struct {
	mu  sync.Mutex
	fns []namedCloser
}

type namedCloser struct {
	name string
	fn   func() error
}

func (c *Closers) Add(name string, fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, namedCloser{name: name, fn: fn})
}

// Close runs hooks newest first and logs failures.
func (c *Closers) Close(log *logrus.Logger) {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i].fn(); err != nil {
			log.WithError(err).WithField("resource", fns[i].name).Warn("close failed")
		}
	}
}

func Setup(cfg *config.Config, log *logrus.Logger) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, log)
	do.ProvideValue(injector, &Closers{})

	registerObservability(injector)
	registerStorage(injector)
	registerProviders(injector)
	registerServices(injector)

	return injector
}

func registerObservability(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*prometheus.Registry, error) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return reg, nil
	})
	do.Provide(injector, func(i do.Injector) (*metrics.Metrics, error) {
		return metrics.NewMetrics(do.MustInvoke[*prometheus.Registry](i)), nil
	})
}

func registerStorage(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (cache.Cache, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*logrus.Logger](i)
		if cfg.RedisAddr == "" {
			log.Info("REDIS_ADDR not set, keeping chat history in memory")
			return cache.NewMemoryCache(), nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), backendInitTimeout)
		defer cancel()
		rdb, err := config.InitRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		do.MustInvoke[*Closers](i).Add("redis", rdb.Close)
		log.Info("redis connected")
		return cache.NewRedisCache(rdb, cacheKeyPrefix), nil
	})

	do.Provide(injector, func(i do.Injector) (kv.HistoryRepository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return kv.NewHistoryRepo(do.MustInvoke[cache.Cache](i), cfg.HistoryTTL), nil
	})
	do.Provide(injector, func(i do.Injector) (kv.SessionRepository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return kv.NewSessionRepo(do.MustInvoke[cache.Cache](i), cfg.HistoryTTL), nil
	})

	do.Provide(injector, func(i do.Injector) (services.ConversationService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.PostgresURI == "" {
			return nil, nil
		}
		db, err := config.InitPostgres(cfg.PostgresURI)
		if err != nil {
			return nil, fmt.Errorf("failed to connect postgres: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			do.MustInvoke[*Closers](i).Add("postgres", sqlDB.Close)
		}
		do.MustInvoke[*logrus.Logger](i).Info("postgres connected, conversation archive enabled")
		return services.NewConversationService(pgrepo.NewConversationRepo(db)), nil
	})

	do.Provide(injector, func(i do.Injector) (mongorepo.SpeechLogRepository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.MongoURI == "" {
			return nil, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), backendInitTimeout)
		defer cancel()

		client, err := config.InitMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("failed to connect mongo: %w", err)
		}
		do.MustInvoke[*Closers](i).Add("mongo", func() error {
			return client.Disconnect(context.Background())
		})

		db := client.Database(cfg.MongoDB)
		if err := config.EnsureMongoIndexes(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}
		do.MustInvoke[*logrus.Logger](i).Info("mongo connected, speech log enabled")
		return mongorepo.NewSpeechLogRepo(db, cfg.SpeechLogTTL), nil
	})

	do.Provide(injector, func(i do.Injector) (storage.Uploader, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.GCSBucket == "" {
			return nil, nil
		}
		u, err := storage.NewGCSUploader(context.Background(), cfg.GCSBucket, cfg.GCSPrefix, googleOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("failed to init gcs: %w", err)
		}
		do.MustInvoke[*Closers](i).Add("gcs", u.Close)
		return u, nil
	})
}

func registerProviders(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (llm.Provider, error) {
		cfg := do.MustInvoke[*config.Config](i)
		p, err := NewLLM(cfg)
		if err != nil {
			return nil, err
		}
		do.MustInvoke[*Closers](i).Add("llm", p.Close)
		return p, nil
	})

	do.Provide(injector, func(i do.Injector) (*stt.Loader, error) {
		cfg := do.MustInvoke[*config.Config](i)
		l := stt.NewLoader(func() (stt.Provider, error) {
			switch cfg.STTEngine {
			case "google":
				return stt.NewGoogleSpeech(context.Background(), cfg.STTLanguage, googleOptions(cfg)...)
			default:
				return stt.NewVosk(cfg.VoskModelPath)
			}
		})
		do.MustInvoke[*Closers](i).Add("stt", l.Close)
		return l, nil
	})

	do.Provide(injector, func(i do.Injector) (*audio.Normalizer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dec := audio.NewDecoder(audio.DecoderOptions{
			FFmpegPath:   cfg.FFmpegPath,
			FallbackRate: cfg.TargetSampleRate,
		})
		return audio.NewNormalizer(cfg.TargetSampleRate, dec), nil
	})
}

func googleOptions(cfg *config.Config) []option.ClientOption {
	if cfg.GoogleCredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.GoogleCredentialsFile)}
}

// NewLLM picks the chat backend named by CHAT_PROVIDER.
func NewLLM(cfg *config.Config) (llm.Provider, error) {
	// CHAT_MODEL defaults to the ollama model; the other backends use their own default
	model := cfg.ChatModel
	if cfg.ChatProvider != "ollama" && model == llm.DefaultOllamaModel {
		model = ""
	}

	switch cfg.ChatProvider {
	case "openai":
		return llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model, cfg.ChatTimeout), nil
	case "vertex":
		return llm.NewVertexGemini(context.Background(), cfg.VertexProject, cfg.VertexLocation, model, cfg.ChatTimeout, googleOptions(cfg)...)
	case "ollama", "":
		return llm.NewOllama(cfg.ChatEndpoint, cfg.ChatModel, cfg.ChatTimeout), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.ChatProvider)
	}
}

func registerServices(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (services.Persona, error) {
		cfg := do.MustInvoke[*config.Config](i)
		p, err := services.LoadPersona(cfg.PersonaFile)
		if err != nil {
			do.MustInvoke[*logrus.Logger](i).WithError(err).Warn("persona file unusable, using built-in persona")
			return services.DefaultPersona(), nil
		}
		return p, nil
	})

	do.Provide(injector, func(i do.Injector) (services.ChatService, error) {
		return services.NewChatService(services.ChatDeps{
			LLM:     do.MustInvoke[llm.Provider](i),
			History: do.MustInvoke[kv.HistoryRepository](i),
			Persona: do.MustInvoke[services.Persona](i),
			Archive: do.MustInvoke[services.ConversationService](i),
			Metrics: do.MustInvoke[*metrics.Metrics](i),
			Logger:  do.MustInvoke[*logrus.Logger](i),
		}), nil
	})

	do.Provide(injector, func(i do.Injector) (services.SessionService, error) {
		return services.NewSessionService(
			do.MustInvoke[kv.SessionRepository](i),
			do.MustInvoke[services.ChatService](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (services.SpeechService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return services.NewSpeechService(services.SpeechDeps{
			Recognizer: do.MustInvoke[*stt.Loader](i),
			Normalizer: do.MustInvoke[*audio.Normalizer](i),
			TempDir:    cfg.TempVoiceDir,
			Logs:       do.MustInvoke[mongorepo.SpeechLogRepository](i),
			Uploader:   do.MustInvoke[storage.Uploader](i),
			Metrics:    do.MustInvoke[*metrics.Metrics](i),
			Logger:     do.MustInvoke[*logrus.Logger](i),
		}), nil
	})

	do.Provide(injector, func(i do.Injector) (*workers.TempVoiceJanitor, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var purgers []workers.Purger
		if mc, ok := do.MustInvoke[cache.Cache](i).(*cache.MemoryCache); ok {
			purgers = append(purgers, mc)
		}
		return &workers.TempVoiceJanitor{
			Dir:       cfg.TempVoiceDir,
			Retention: cfg.TempVoiceRetention,
			Interval:  cfg.TempVoiceSweepInterval,
			Purgers:   purgers,
			Metrics:   do.MustInvoke[*metrics.Metrics](i),
			Logger:    do.MustInvoke[*logrus.Logger](i),
		}, nil
	})
}
