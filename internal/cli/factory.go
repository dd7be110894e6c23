// Package cli wires configuration into stores and engines for the tendril command.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/config"
	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/adapters/sqlite"
	"github.com/aretw0/tendril/pkg/chatbot"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Backend is an opened checkpoint store plus what travels with it.
type Backend struct {
	Store ports.CheckpointStore
	// Locker is set for backends shared between processes.
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases connections held by the backend.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend builds the configured store and decorates it.
// Metrics are recorded when reg is non-nil; encryption applies when a key is set.
func OpenBackend(cfg *config.Config, reg prometheus.Registerer) (*Backend, error) {
	b := &Backend{}
	switch cfg.Store.Backend {
	case config.BackendMemory:
		b.Store = memory.NewStore()
	case config.BackendFile:
		b.Store = file.New(cfg.Store.Dir)
	case config.BackendRedis:
		rc := cfg.Store.Redis
		opts := []redis.Option{redis.WithPrefix(rc.Prefix)}
		if rc.TTL > 0 {
			opts = append(opts, redis.WithTTL(rc.TTL))
		}
		s := redis.New(rc.Addr, rc.Password, rc.DB, opts...)
		b.Store = s
		b.Locker = redis.NewLocker(s.Client(), rc.Prefix)
		b.close = s.Close
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.Store.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		s, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.Store = s
		b.close = s.Close
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	var mws []middleware.Middleware
	if reg != nil {
		mws = append(mws, middleware.NewMetricsMiddleware(middleware.NewStoreMetrics(reg)))
	}
	if cfg.Encryption.Enabled() {
		active, fallbacks, err := cfg.Encryption.Keys()
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		}))
	}
	b.Store = middleware.Chain(mws...)(b.Store)
	return b, nil
}

// NewChatEngine compiles the chatbot graph and binds it to the backend.
// Interrupts default to chatbot.DefaultInterrupts; an empty, non-nil list disables them.
func NewChatEngine(cfg *config.Config, b *Backend, logger *slog.Logger, reg prometheus.Registerer) (*tendril.Engine[chatbot.ChatState], error) {
	g, err := chatbot.NewGraph(nil)
	if err != nil {
		return nil, fmt.Errorf("compile chat graph: %w", err)
	}

	interrupts := cfg.Interrupts
	if interrupts == nil {
		interrupts = chatbot.DefaultInterrupts
	}

	opts := []tendril.Option{
		tendril.WithStore(b.Store),
		tendril.WithLogger(logger),
		tendril.WithLifecycleHooks(observability.LogHooks(logger)),
		tendril.WithInterruptBefore(interrupts...),
		tendril.WithMaxSteps(cfg.MaxSteps),
	}
	if b.Locker != nil {
		opts = append(opts, tendril.WithLocker(b.Locker))
	}
	if reg != nil {
		opts = append(opts, tendril.WithMetrics(reg))
	}

	eng, err := tendril.New(g, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return eng, nil
}
