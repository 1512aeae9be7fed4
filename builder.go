package goPerm

import (
	"errors"
	"time"

	"github.com/MrEthical07/goPerm/cache"
	"github.com/MrEthical07/goPerm/permission"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. Configure it with the With* methods and call
// Build once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	features []permission.FeatureConfig

	userProvider UserProvider
	auditSink    AuditSink
	logger       *zap.Logger

	built bool
}

// New returns a builder with [DefaultConfig] and the built-in feature catalog.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the cache backend. Without it the engine computes every
// resolution directly.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithFeatures replaces the built-in catalog with features.
func (b *Builder) WithFeatures(features []permission.FeatureConfig) *Builder {
	b.features = features
	return b
}

// WithUserProvider sets the source of user permission state. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the sink for audit events. It has no effect unless
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the resolve latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, processes the feature catalog, and
// returns a ready engine. A builder can only be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, w := range cfg.Lint() {
		logger.Warn("config lint",
			zap.String("code", w.Code),
			zap.Stringer("severity", w.Severity),
			zap.String("message", w.Message))
	}

	// -------- FEATURE REGISTRY --------
	features := b.features
	if features == nil {
		features = permission.DefaultCatalog()
	}
	registry, err := permission.NewRegistry(features)
	if err != nil {
		return nil, err
	}

	// -------- CACHE --------
	var store *cache.Store
	switch {
	case cfg.Cache.Enabled && b.redis != nil:
		store = cache.NewStore(
			b.redis,
			cfg.Cache.RedisPrefix,
			cfg.Cache.TTL,
			cfg.Cache.OperationTimeout,
		)
	case cfg.Cache.Enabled:
		logger.Info("permission cache disabled: no redis client configured")
	}

	b.built = true

	return &Engine{
		config:   cfg,
		registry: registry,
		resolver: permission.NewResolver(registry, logger.Named("permission")),
		cache:    store,
		users:    b.userProvider,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink, logger.Named("audit")),
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
		now:      time.Now,
	}, nil
}
