package prompt

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type form struct {
	Age  int
	Name string
}

type outbox struct {
	mu   sync.Mutex
	sent []string
	ch   chan string
}

func newOutbox() *outbox { return &outbox{ch: make(chan string, 16)} }

func (o *outbox) send(_ context.Context, text string) error {
	o.mu.Lock()
	o.sent = append(o.sent, text)
	o.mu.Unlock()
	o.ch <- text
	return nil
}

func (o *outbox) next(t *testing.T) string {
	t.Helper()
	select {
	case s := <-o.ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("no message sent")
		return ""
	}
}

func steps() []Step[form] {
	return []Step[form]{
		{
			Name:   "age",
			Prompt: "How old?",
			Validate: func(raw string, acc form) (form, error) {
				n, err := strconv.Atoi(raw)
				if err != nil {
					return acc, Reject("Please enter a number.")
				}
				acc.Age = n
				return acc, nil
			},
		},
		{
			Name:   "name",
			Prompt: "Name?",
			Validate: func(raw string, acc form) (form, error) {
				if raw == "boom" {
					return acc, errors.New("storage down")
				}
				acc.Name = raw
				return acc, nil
			},
		},
	}
}

func start(t *testing.T, timeout time.Duration) (*Session[form], *outbox, chan Outcome[form]) {
	t.Helper()
	out := newOutbox()
	s := NewSession(steps(), out.send, timeout)
	res := make(chan Outcome[form], 1)
	go func() { res <- s.Run(context.Background(), form{}) }()
	return s, out, res
}

func wait(t *testing.T, res chan Outcome[form]) Outcome[form] {
	t.Helper()
	select {
	case o := <-res:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return Outcome[form]{}
	}
}

func TestSession_SuccessWithRejection(t *testing.T) {
	s, out, res := start(t, time.Second)

	assert.Equal(t, "How old?", out.next(t))
	require.True(t, s.Deliver("old"))
	assert.Equal(t, "Please enter a number.", out.next(t))
	require.True(t, s.Deliver("30"))
	assert.Equal(t, "Name?", out.next(t))
	require.True(t, s.Deliver("Vanu"))

	o := wait(t, res)
	assert.Equal(t, Success, o.Status)
	assert.Equal(t, form{Age: 30, Name: "Vanu"}, o.Value)
	assert.False(t, s.Deliver("late"))
}

func TestSession_Exit(t *testing.T) {
	s, out, res := start(t, time.Second)
	out.next(t)
	require.True(t, s.Deliver(" EXIT "))

	o := wait(t, res)
	assert.Equal(t, Cancelled, o.Status)
	assert.Equal(t, "age", o.Step)
}

func TestSession_Timeout(t *testing.T) {
	_, out, res := start(t, 30*time.Millisecond)
	out.next(t)

	o := wait(t, res)
	assert.Equal(t, TimedOut, o.Status)
	assert.Equal(t, "timed_out", o.Status.String())
}

func TestSession_ValidatorError(t *testing.T) {
	s, out, res := start(t, time.Second)
	out.next(t)
	require.True(t, s.Deliver("5"))
	out.next(t)
	require.True(t, s.Deliver("boom"))

	o := wait(t, res)
	assert.Equal(t, Failed, o.Status)
	assert.EqualError(t, o.Err, "storage down")
	assert.Equal(t, 5, o.Value.Age)
}

func TestSession_SendFailure(t *testing.T) {
	s := NewSession(steps(), func(context.Context, string) error { return errors.New("dm closed") }, time.Second)
	o := s.Run(context.Background(), form{})
	assert.Equal(t, Failed, o.Status)
	assert.ErrorContains(t, o.Err, "dm closed")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry[form]()
	a := NewSession(steps(), func(context.Context, string) error { return nil }, time.Second)
	b := NewSession(steps(), func(context.Context, string) error { return nil }, time.Second)

	require.True(t, r.Begin("u1", a))
	assert.False(t, r.Begin("u1", b))
	assert.True(t, r.Active("u1"))
	assert.True(t, r.Deliver("u1", "hi"))
	assert.False(t, r.Deliver("u2", "hi"))

	r.End("u1", b)
	assert.True(t, r.Active("u1"))
	r.End("u1", a)
	assert.False(t, r.Active("u1"))
}
