package bus

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	dombus "github.com/stylecommerce/marketplace/internal/domain/bus"
	"github.com/stylecommerce/marketplace/internal/observability"
	"github.com/stylecommerce/marketplace/internal/observability/logctx"
)

const (
	componentBus   = "event_bus"
	handlerTimeout = 30 * time.Second
)

// ErrStopped is returned for publishes that arrive after Stop.
var ErrStopped = errors.New("bus: stopped")

// Bus is an in-memory event bus used for audit fanout and order
// lifecycle events. It is not durable; a production deployment would
// persist events (true outbox) and dispatch from a worker.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]dombus.Handler
	queue       chan dombus.Event
	done        chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
	cancel      context.CancelFunc
	concurrency int
	log         observability.Logger
}

func New(tel observability.Observability) *Bus {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Bus{
		subs:        make(map[string][]dombus.Handler),
		queue:       make(chan dombus.Event, 1024),
		done:        make(chan struct{}),
		concurrency: 8,
		log:         tel.Logger().With(observability.F("component", componentBus)),
	}
}

func (b *Bus) Subscribe(eventName string, h dombus.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(ctx)
		b.cancel = cancel
		go b.dispatchLoop(bg)
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop cancels the dispatch loop. The queue channel is left open so
// publishes racing with shutdown fail with ErrStopped instead of
// panicking on a closed channel.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		close(b.done)
		if b.cancel != nil {
			b.cancel()
		}
		logctx.FromOr(ctx, b.log).Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e dombus.Event) error {
	if e == nil {
		return nil
	}
	select {
	case <-b.done:
		return ErrStopped
	default:
	}
	select {
	case b.queue <- e:
		return nil
	case <-b.done:
		return ErrStopped
	case <-ctx.Done():
		logctx.FromOr(ctx, b.log).Warn("event_enqueue_aborted",
			observability.F("event", e.EventName()),
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.queue:
			b.fanout(ctx, e)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e dombus.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]dombus.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", observability.F("event", name))
		return
	}

	// Handlers outlive the publisher's request context.
	ctx = context.WithoutCancel(ctx)

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event_handler_panic",
						observability.F("event", name),
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			hctx = logctx.With(hctx, b.log.With(observability.F("event", name)))
			err := h(hctx, e)
			cancel()
			if err != nil {
				b.log.Warn("event_handler_error",
					observability.F("event", name),
					observability.F("error", err),
				)
			}
		}()
	}

	wg.Wait()
}
