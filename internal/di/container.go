package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/factory"
	"github.com/mikey/email-onebox/internal/logging"
	"github.com/mikey/email-onebox/internal/reply"
	"github.com/mikey/email-onebox/internal/rules"
	"github.com/mikey/email-onebox/internal/server"
	"github.com/mikey/email-onebox/internal/syncer"
	"github.com/mikey/email-onebox/internal/utils"
)

// Guards holds one guard per external call path so each has its own breaker
type Guards struct {
	Classify *utils.Guard
	Reply    *utils.Guard
	Index    *utils.Guard
}

// Options are the command line overrides applied on top of the config file
type Options struct {
	// ConfigPath may be empty to search the default locations
	ConfigPath string
	Verbose    bool
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer(opts Options) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.NewFromFile(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		if opts.Verbose {
			cfg.Set("logging.level", "debug")
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register stores
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IndexFactory) (core.IndexStore, error) {
		return f.CreateIndexStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.VectorFactory) (core.VectorStore, error) {
		return f.CreateVectorStore()
	}); err != nil {
		return nil, err
	}

	// Register mailbox fetcher and notification fanout
	if err := container.Provide(func(f *factory.MailboxFactory) core.MailboxFetcher {
		return f.CreateFetcher()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.NotifyFactory) core.Dispatcher {
		return f.CreateDispatcher()
	}); err != nil {
		return nil, err
	}

	// Register classification service with cache
	if err := container.Provide(func(
		cfg *config.Config,
		llmClient core.LLMClient,
		cache core.CacheRepository,
		senderRules core.SenderRules,
		guards *Guards,
		cacheFactory *factory.CacheFactory,
		logger *zap.Logger,
	) *core.ClassificationService {
		return core.NewClassificationService(
			llmClient,
			cache,
			senderRules,
			guards.Classify,
			logger,
			classificationOptions(cfg, cacheFactory),
		)
	}); err != nil {
		return nil, err
	}

	// Register pipeline
	if err := container.Provide(func(
		service *core.ClassificationService,
		index core.IndexStore,
		dispatcher core.Dispatcher,
		notifyFactory *factory.NotifyFactory,
		guards *Guards,
		logger *zap.Logger,
	) (*core.Pipeline, error) {
		triggers, err := notifyFactory.TriggerLabels()
		if err != nil {
			return nil, fmt.Errorf("invalid notify.trigger_labels: %w", err)
		}
		return core.NewPipeline(service, index, dispatcher, triggers, guards.Index, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register sync orchestrator and poller
	if err := container.Provide(func(
		cfg *config.Config,
		f *factory.MailboxFactory,
		fetcher core.MailboxFetcher,
		index core.IndexStore,
		guards *Guards,
		logger *zap.Logger,
	) (*syncer.Orchestrator, error) {
		accounts, err := f.Accounts()
		if err != nil {
			return nil, err
		}
		if len(accounts) == 0 {
			logger.Warn("No mail accounts configured")
		}
		s := cfg.GetSync()
		return syncer.NewOrchestrator(accounts, fetcher, index, guards.Index,
			syncer.Options{Concurrency: s.Concurrency, Buffer: s.Buffer}, logger), nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		o *syncer.Orchestrator,
		pipeline *core.Pipeline,
		logger *zap.Logger,
	) *syncer.Poller {
		return syncer.NewPoller(o, pipeline.Handler(), cfg.GetSync().Interval, logger)
	}); err != nil {
		return nil, err
	}

	// Register reply engine
	if err := container.Provide(func(
		cfg *config.Config,
		llmClient core.LLMClient,
		store core.VectorStore,
		guards *Guards,
		logger *zap.Logger,
	) *reply.Engine {
		return reply.NewEngine(llmClient, llmClient, store, guards.Reply, cfg.GetReply().Collection, logger)
	}); err != nil {
		return nil, err
	}

	// Register query service
	if err := container.Provide(func(
		cfg *config.Config,
		indexFactory *factory.IndexFactory,
		index core.IndexStore,
		engine *reply.Engine,
		poller *syncer.Poller,
		logger *zap.Logger,
	) *server.Server {
		return server.New(cfg.GetServer(), indexFactory.PageSize(), index, engine, poller, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers the factories and shared services used by every command
func provideCommon(container *dig.Container) error {
	// Register factories
	for _, ctor := range []interface{}{
		factory.NewTextProcessorFactory,
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		factory.NewIndexFactory,
		factory.NewVectorFactory,
		factory.NewNotifyFactory,
		factory.NewMailboxFactory,
		factory.NewResilienceFactory,
		factory.NewFilterFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return err
	}

	// Register guards
	if err := container.Provide(func(f *factory.ResilienceFactory) *Guards {
		return &Guards{
			Classify: f.CreateClassifierGuard(),
			Reply:    f.CreateGuard("reply"),
			Index:    f.CreateGuard("index"),
		}
	}); err != nil {
		return err
	}

	// Register sender rules
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.SenderRules {
		senderRules := cfg.GetClassification().SenderRules
		if len(senderRules) > 0 {
			logger.Info("Loaded sender rules", zap.Int("domains", len(senderRules)))
		}
		return rules.NewChecker(senderRules, logger)
	}); err != nil {
		return err
	}

	return nil
}

// classificationOptions reads the gateway settings. A nil cacheFactory
// disables the cache.
func classificationOptions(cfg *config.Config, cacheFactory *factory.CacheFactory) core.ClassificationOptions {
	c := cfg.GetClassification()
	opts := core.ClassificationOptions{
		StrictLabels:  c.StrictLabels,
		Timeout:       cfg.GetLLM().Timeout,
		RatePerSecond: c.RatePerSecond,
	}
	if cacheFactory != nil {
		opts.CacheEnabled = cacheFactory.IsCacheEnabled()
		opts.CacheTTL = cacheFactory.GetCacheTTL()
	}
	return opts
}
