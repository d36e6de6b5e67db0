package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/app/service"
)

// Module es una unidad que arranca con Initialize y libera todo en Teardown.
type Module interface {
	Name() string
	Initialize(ctx context.Context) error
	Teardown(ctx context.Context) error
}

// App inicializa los módulos en orden; un módulo que falla queda deshabilitado sin tirar al resto.
type App struct {
	log     zerolog.Logger
	modules []Module

	mu     sync.RWMutex
	active map[string]bool
	order  []Module
}

func New(log zerolog.Logger, modules ...Module) *App {
	return &App{log: log, modules: modules, active: map[string]bool{}}
}

// Initialize devuelve la cantidad de módulos activos.
func (a *App) Initialize(ctx context.Context) int {
	for _, m := range a.modules {
		log := a.log.With().Str("module", m.Name()).Logger()
		if err := a.initialize(ctx, m); err != nil {
			if errors.Is(err, service.ErrNotConfigured) {
				log.Warn().Err(err).Msg("skipping initialization")
			} else {
				log.Error().Err(err).Msg("module disabled")
			}
			continue
		}
		a.mu.Lock()
		a.active[m.Name()] = true
		a.order = append(a.order, m)
		a.mu.Unlock()
		log.Info().Msg("module initialized")
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.order)
}

func (a *App) initialize(ctx context.Context, m Module) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during initialize: %v", rec)
		}
	}()
	return m.Initialize(ctx)
}

func (a *App) Active(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active[name]
}

func (a *App) ActiveNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.order))
	for _, m := range a.order {
		names = append(names, m.Name())
	}
	return names
}

// Teardown baja los módulos activos en orden inverso y junta los errores.
func (a *App) Teardown(ctx context.Context) error {
	a.mu.Lock()
	order := a.order
	a.order = nil
	a.active = map[string]bool{}
	a.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		m := order[i]
		if err := m.Teardown(ctx); err != nil {
			a.log.Error().Err(err).Str("module", m.Name()).Msg("teardown failed")
			errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
			continue
		}
		a.log.Info().Str("module", m.Name()).Msg("module stopped")
	}
	return errors.Join(errs...)
}
