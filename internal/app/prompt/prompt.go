// Package prompt implementa conversaciones de varios pasos por mensaje directo:
// cada paso pregunta, valida la respuesta y acumula el resultado.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimeout = 5 * time.Minute
	ExitWord       = "exit"
)

// Rejection hace que el paso se vuelva a pedir; Message se le manda al usuario.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string { return r.Message }

func Reject(msg string) error { return &Rejection{Message: msg} }

type Step[T any] struct {
	Name     string
	Prompt   string
	Validate func(raw string, acc T) (T, error)
}

type Status int

const (
	Success Status = iota
	TimedOut
	Cancelled
	Failed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

type Outcome[T any] struct {
	Status Status
	Value  T
	Step   string
	Err    error
}

// Sender manda un mensaje al usuario de la sesión.
type Sender func(ctx context.Context, text string) error

type Session[T any] struct {
	steps   []Step[T]
	send    Sender
	timeout time.Duration

	inbox chan string
	done  chan struct{}
	once  sync.Once
}

func NewSession[T any](steps []Step[T], send Sender, timeout time.Duration) *Session[T] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session[T]{
		steps:   steps,
		send:    send,
		timeout: timeout,
		inbox:   make(chan string, 1),
		done:    make(chan struct{}),
	}
}

// Deliver entrega una respuesta del usuario. Devuelve false si la sesión ya terminó
// o si todavía hay una respuesta sin procesar.
func (s *Session[T]) Deliver(text string) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- text:
		return true
	case <-s.done:
		return false
	default:
		return false
	}
}

// Run recorre los pasos en orden hasta terminar, cancelar, vencer o fallar.
func (s *Session[T]) Run(ctx context.Context, initial T) Outcome[T] {
	defer s.once.Do(func() { close(s.done) })

	acc := initial
	for _, step := range s.steps {
		if err := s.send(ctx, step.Prompt); err != nil {
			return Outcome[T]{Status: Failed, Value: acc, Step: step.Name, Err: fmt.Errorf("send prompt %s: %w", step.Name, err)}
		}

		next, out, finished := s.answer(ctx, step, acc)
		if finished {
			return out
		}
		acc = next
	}
	return Outcome[T]{Status: Success, Value: acc}
}

func (s *Session[T]) answer(ctx context.Context, step Step[T], acc T) (T, Outcome[T], bool) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return acc, Outcome[T]{Status: Failed, Value: acc, Step: step.Name, Err: ctx.Err()}, true
		case <-timer.C:
			return acc, Outcome[T]{Status: TimedOut, Value: acc, Step: step.Name}, true
		case raw := <-s.inbox:
			if strings.EqualFold(strings.TrimSpace(raw), ExitWord) {
				return acc, Outcome[T]{Status: Cancelled, Value: acc, Step: step.Name}, true
			}
			next, err := step.Validate(raw, acc)
			var rej *Rejection
			if errors.As(err, &rej) {
				if err := s.send(ctx, rej.Message); err != nil {
					return acc, Outcome[T]{Status: Failed, Value: acc, Step: step.Name, Err: err}, true
				}
				timer.Reset(s.timeout)
				continue
			}
			if err != nil {
				return acc, Outcome[T]{Status: Failed, Value: acc, Step: step.Name, Err: err}, true
			}
			return next, Outcome[T]{}, false
		}
	}
}

// Registry guarda una sesión activa por usuario.
type Registry[T any] struct {
	mu       sync.Mutex
	sessions map[string]*Session[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{sessions: map[string]*Session[T]{}}
}

// Begin registra la sesión; false si el usuario ya tiene una en curso.
func (r *Registry[T]) Begin(userID string, s *Session[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.sessions[userID]; busy {
		return false
	}
	r.sessions[userID] = s
	return true
}

func (r *Registry[T]) End(userID string, s *Session[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[userID]; ok && cur == s {
		delete(r.sessions, userID)
	}
}

// Deliver manda text a la sesión activa del usuario; false si no hay ninguna.
func (r *Registry[T]) Deliver(userID, text string) bool {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return s.Deliver(text)
}

func (r *Registry[T]) Active(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[userID]
	return ok
}
