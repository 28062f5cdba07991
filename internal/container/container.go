package container

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anime-shed/webcritic-go/internal/analyzer"
	"github.com/anime-shed/webcritic-go/internal/config"
	"github.com/anime-shed/webcritic-go/internal/factory"
	"github.com/anime-shed/webcritic-go/internal/logger"
	"github.com/anime-shed/webcritic-go/internal/observer"
	"github.com/anime-shed/webcritic-go/internal/repository"
	"github.com/anime-shed/webcritic-go/internal/roaster"
	"github.com/anime-shed/webcritic-go/internal/service"
	"github.com/anime-shed/webcritic-go/internal/strategy"
	"github.com/anime-shed/webcritic-go/internal/transport"
	"github.com/anime-shed/webcritic-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	metrics         *observer.MetricsObserver
	sessions        *repository.MemorySessionRepository
	sources         factory.Sources
	critic          roaster.Critic
	inspector       *analyzer.Inspector
	workerPool      *service.WorkerPool
	critiqueService service.CritiqueService
	handler         http.Handler
}

// Option overrides a dependency before the graph is built
type Option func(*Container)

// WithCritic replaces the Anthropic critic
func WithCritic(critic roaster.Critic) Option {
	return func(c *Container) { c.critic = critic }
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger.SetLevel(cfg.LogLevel)

	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	// Build dependency graph
	c.metrics = observer.NewMetricsObserver()
	c.sessions = repository.NewMemorySessionRepository(
		observer.NewLoggingObserver(logger.Logger),
		c.metrics,
	)

	storageFactory := factory.NewStorageFactory(factory.StorageOptions{
		FetchTimeout:        cfg.ImageFetchTimeout,
		AzureStorageAccount: cfg.AzureStorageAccount,
		AzureStorageKey:     cfg.AzureStorageKey,
	})
	sourceTypes := []factory.StorageType{factory.HTTPStorage, factory.LocalStorage}
	if cfg.AzureConfigured() {
		sourceTypes = append(sourceTypes, factory.AzureStorage)
	}
	sources, err := factory.BuildSources(storageFactory, sourceTypes...)
	if err != nil {
		return nil, fmt.Errorf("failed to build image sources: %w", err)
	}
	c.sources = sources

	if c.critic == nil {
		c.critic = roaster.NewAnthropicCritic(roaster.Config{
			APIKey:  cfg.AnthropicAPIKey,
			BaseURL: cfg.AnthropicBaseURL,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.ModelTimeout,
		})
	}

	c.inspector, err = newInspector(cfg)
	if err != nil {
		return nil, err
	}
	c.workerPool = service.NewWorkerPool(cfg.MaxWorkers)
	c.critiqueService = service.NewCritiqueService(service.Dependencies{
		Critic:       c.critic,
		Inspector:    c.inspector,
		Pool:         c.workerPool,
		Sources:      sources,
		URLValidator: validation.NewURLValidator(),
		AzureAccount: cfg.AzureStorageAccount,
	})

	c.handler = transport.NewHandler(transport.Deps{
		Service:  c.critiqueService,
		Sessions: c.sessions,
		Metrics:  c.metrics,
		Pool:     c.workerPool,
		Config:   cfg,
	})

	return c, nil
}

func newInspector(cfg *config.Config) (*analyzer.Inspector, error) {
	s, err := strategy.ForMode(cfg.InspectMode, cfg.OCRLanguage)
	if err != nil {
		return nil, err
	}
	inspector, used := strategy.NewInspector(s, analyzer.NewOCRExtractor)
	logger.WithField("strategy", used.GetStrategyName()).Debug("Inspector ready")
	return inspector, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Sessions returns the session repository
func (c *Container) Sessions() *repository.MemorySessionRepository {
	return c.sessions
}

// Sources returns the configured screenshot sources
func (c *Container) Sources() factory.Sources {
	return c.sources
}

// CritiqueService returns the upload flow service
func (c *Container) CritiqueService() service.CritiqueService {
	return c.critiqueService
}

// Close drains the worker pool and releases OCR resources
func (c *Container) Close() error {
	c.workerPool.Close()
	c.workerPool.Wait()
	c.sessions.Close()
	return c.inspector.Close()
}
