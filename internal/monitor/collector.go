package monitor

import (
	"context"
	"log/slog"
	"time"
)

// Event is one observed call outcome on its way into the monitor.
type Event struct {
	Service   string
	Success   bool
	Latency   time.Duration
	Timestamp time.Time
}

// Collector decouples hot call paths from metric bookkeeping with a
// buffered event channel.
type Collector struct {
	eventCh chan Event
	monitor *Monitor
	logger  *slog.Logger
}

func NewCollector(bufferSize int, monitor *Monitor, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		monitor: monitor,
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

// Emit hands an event to the collector without ever blocking the
// caller. When the buffer is full the event is dropped.
func (c *Collector) Emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("Metrics buffer full, dropping event", "service", event.Service)
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	c.monitor.Record(event.Service, event.Success, event.Latency)
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}
