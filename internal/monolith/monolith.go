// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"sync"

	"github.com/fd1az/ethersense/internal/config"
	"github.com/fd1az/ethersense/internal/di"
	"github.com/fd1az/ethersense/internal/health"
	"github.com/fd1az/ethersense/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Health() *health.Server
	Services() di.ServiceRegistry
	// OnShutdown registers fn to run on Close, in reverse registration order.
	OnShutdown(fn func())
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	health    *health.Server
	container di.Container

	mu        sync.Mutex
	closers   []func()
	closeOnce sync.Once
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface, hs *health.Server) *app {
	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("health", hs)

	return &app{
		config:    cfg,
		logger:    log,
		health:    hs,
		container: container,
	}
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Health() *health.Server {
	return a.health
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

func (a *app) OnShutdown(fn func()) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close runs shutdown hooks once, last registered first.
func (a *app) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		closers := a.closers
		a.closers = nil
		a.mu.Unlock()

		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	})
	return nil
}
