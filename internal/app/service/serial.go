package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrStopped = errors.New("service stopped")

type command struct {
	ctx context.Context
	fn  func(context.Context) error
	res chan error
}

// serial ejecuta comandos de a uno en una goroutine propia.
// Todo lo que toca el estado del tracker pasa por acá.
type serial struct {
	cmds    chan command
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newSerial() *serial {
	s := &serial{
		cmds:    make(chan command),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *serial) loop() {
	defer close(s.stopped)
	for {
		select {
		case c := <-s.cmds:
			c.res <- run(c)
		case <-s.done:
			return
		}
	}
}

func run(c command) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return c.fn(c.ctx)
}

// exec encola fn y espera el resultado.
func (s *serial) exec(ctx context.Context, fn func(context.Context) error) error {
	res := make(chan error, 1)
	select {
	case s.cmds <- command{ctx: ctx, fn: fn, res: res}:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *serial) stop() {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}
