// Package eventbus dispatches in-process events to handlers by their
// parameter types.
package eventbus

import (
	stderrors "errors"
	"reflect"
	"sync"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoSubscribers = errors.New("eventbus: no matching subscribers")
	ErrNotAFunc      = errors.New("eventbus: handler must be a function")
)

type EventBus interface {
	// Publish calls every handler whose parameters accept args. Handler
	// panics are logged and do not stop the others.
	Publish(args ...any)
	// PublishE is Publish that collects the errors returned by handlers.
	PublishE(args ...any) error
	Subscribe(handler any) error
	Unsubscribe(handler any)
	SubscribersCount() int
}

type bus struct {
	log      *logrus.Entry
	mu       sync.RWMutex
	handlers []reflect.Value
}

func New(log *logrus.Logger) EventBus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &bus{log: log.WithField("component", "eventbus")}
}

// Accepts reports whether handler can be called with args.
func Accepts(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		in := t.In(i)
		if arg == nil {
			if k := in.Kind(); k != reflect.Interface && k != reflect.Ptr {
				return false
			}
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(in) {
			return false
		}
	}
	return true
}

func (b *bus) matching(args []any) []reflect.Value {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []reflect.Value
	for _, h := range b.handlers {
		if Accepts(h.Interface(), args) {
			out = append(out, h)
		}
	}
	return out
}

func values(fn reflect.Type, args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(fn.In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

// call invokes h and converts a panic into an error.
func call(h reflect.Value, args []any) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("eventbus: handler %s panicked: %v", h.Type(), r)
		}
	}()
	return h.Call(values(h.Type(), args)), nil
}

func (b *bus) Publish(args ...any) {
	handlers := b.matching(args)
	if len(handlers) == 0 {
		b.log.Warnf("no matching subscribers for event %v", args)
		return
	}
	for _, h := range handlers {
		if _, err := call(h, args); err != nil {
			b.log.WithError(err).Error("event handler failed")
		}
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func (b *bus) PublishE(args ...any) error {
	handlers := b.matching(args)
	if len(handlers) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, h := range handlers {
		out, err := call(h, args)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(out) == 1 && out[0].Type() == errorType && !out[0].IsNil() {
			errs = append(errs, out[0].Interface().(error))
		}
	}
	return stderrors.Join(errs...)
}

func (b *bus) Subscribe(handler any) error {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		return ErrNotAFunc
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, v)
	return nil
}

func (b *bus) Unsubscribe(handler any) {
	target := reflect.ValueOf(handler)
	if target.Kind() != reflect.Func {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.handlers {
		if h.Pointer() == target.Pointer() {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

func (b *bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
