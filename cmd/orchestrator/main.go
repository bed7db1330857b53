package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"learnloop/internal/adapter/gateway"
	"learnloop/internal/agents"
	"learnloop/internal/cache"
	"learnloop/internal/domain"
	"learnloop/internal/infra/config"
	"learnloop/internal/infra/logger"
	"learnloop/internal/infra/tracer"
	"learnloop/internal/orchestrator"
	"learnloop/internal/plugin"
	"learnloop/internal/plugin/action"
	"learnloop/internal/plugin/data"
	"learnloop/internal/plugin/email"
	"learnloop/internal/plugin/llm"
	"learnloop/internal/plugin/retrieval"
	"learnloop/internal/resilience"
	"learnloop/internal/runtime"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer setup: %w", err)
	}
	defer shutdownTracer(context.Background())

	store, err := openCache(ctx, cfg.Cache, log)
	if err != nil {
		return err
	}
	defer store.Close()

	breakers := resilience.NewRegistry(resilience.Options{}, log)

	plugins := plugin.NewRegistry(log)
	registerPlugins(plugins, cfg, store, breakers, log)
	defer plugins.Shutdown(context.Background())

	registry := orchestrator.NewRegistry([]runtime.Runtime{
		runtime.NewInProcess(log),
		runtime.NewHTTP(nil, log),
		runtime.NewContainer(),
		runtime.NewProcess(),
	}, log)
	defer registry.Shutdown(context.Background())

	orch := orchestrator.New(registry, log)

	for _, def := range agents.Definitions(plugins) {
		if _, err := registry.Register(ctx, def); err != nil {
			return fmt.Errorf("register builtin agent %s: %w", def.ID, err)
		}
	}

	var auth gateway.Authenticator
	if cfg.Gateway.Auth.Type == "static" {
		auth = gateway.NewStaticTokenAuth(cfg.Gateway.Auth.Tokens)
	}

	srv := gateway.NewServer(orch, plugins, auth, cfg.Gateway, log)

	log.Info("orchestrator starting",
		"gateway_addr", cfg.Gateway.Addr,
		"cache", cacheBackendName(cfg.Cache),
		"agents", len(registry.List()),
	)

	// Blocks until the signal context is cancelled.
	return srv.Start(ctx)
}

func openCache(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) (cache.Cache, error) {
	if cfg.Enabled && cfg.RedisURL != "" {
		store, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info("cache backend", "kind", "redis")
		return store, nil
	}
	log.Info("cache backend", "kind", "memory")
	return cache.NewMemory(), nil
}

func cacheBackendName(cfg config.CacheConfig) string {
	if cfg.Enabled && cfg.RedisURL != "" {
		return "redis"
	}
	return "memory"
}

// registerPlugins wires each capability to its mock or real provider
// according to the selection rules. A log line per plugin records which
// path was chosen, so a misconfigured credential is visible at startup.
func registerPlugins(
	plugins *plugin.Registry,
	cfg *config.Config,
	store cache.Cache,
	breakers *resilience.Registry,
	log *slog.Logger,
) {
	if plugin.UseMockEmail(cfg.Plugins.Email) {
		plugins.Register(email.PluginName, email.NewMock(), domainCfg(true))
	} else {
		plugins.Register(email.PluginName,
			email.NewProvider(cfg.Plugins.Email, store, breakers), domainCfg(false))
	}

	if plugin.UseMockLLM(cfg.Plugins.LLM) {
		plugins.Register(llm.PluginName, llm.NewMock(), domainCfg(true))
	} else {
		plugins.Register(llm.PluginName,
			llm.NewProvider(cfg.Plugins.LLM, store, breakers), domainCfg(false))
	}

	if plugin.UseMockAction(cfg.Plugins.Action) {
		plugins.Register(action.PluginName, action.NewMock(), domainCfg(true))
	} else {
		plugins.Register(action.PluginName,
			action.NewProvider(cfg.Plugins.Action, breakers), domainCfg(false))
	}

	if plugin.UseMockRetrieval(cfg.Plugins.Retrieval) {
		plugins.Register(retrieval.PluginName, retrieval.NewMock(), domainCfg(true))
	} else {
		plugins.Register(retrieval.PluginName,
			retrieval.NewProvider(cfg.Plugins.Retrieval, store, breakers), domainCfg(false))
	}

	if plugin.UseMockData(cfg.Plugins.Data) {
		plugins.Register(data.PluginName, data.NewMock(), domainCfg(true))
	} else {
		plugins.Register(data.PluginName,
			data.NewProvider(cfg.Plugins.Data, breakers), domainCfg(false))
	}

	for _, name := range plugins.Names() {
		log.Debug("plugin wired", "plugin", name)
	}
}

func domainCfg(mock bool) domain.PluginConfig {
	return domain.PluginConfig{Mock: mock}
}
