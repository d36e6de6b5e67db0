package discord

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter: un token bucket por usuario para los comandos de texto.
type userLimiter struct {
	mu    sync.Mutex
	lim   map[string]*rate.Limiter
	every time.Duration
	burst int
}

func newUserLimiter(every time.Duration, burst int) *userLimiter {
	return &userLimiter{lim: map[string]*rate.Limiter{}, every: every, burst: burst}
}

func (l *userLimiter) Allow(userID string) bool {
	l.mu.Lock()
	lim, ok := l.lim[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.every), l.burst)
		l.lim[userID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
