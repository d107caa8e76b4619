package monitor_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ddimaraki/bulwark/internal/monitor"
)

var _ = Describe("Collector", func() {
	var (
		collector *monitor.Collector
		mon       *monitor.Monitor
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		mon = monitor.NewMonitor()
		collector = monitor.NewCollector(100, mon, log)
	})

	AfterEach(func() {
		cancel()
		time.Sleep(10 * time.Millisecond) // Allow goroutine to finish
	})

	Describe("NewCollector", func() {
		It("should create a collector with the specified buffer size", func() {
			c := monitor.NewCollector(500, mon, log)
			Expect(c).NotTo(BeNil())
		})
	})

	Describe("EventChannel", func() {
		It("should return a write-only channel", func() {
			ch := collector.EventChannel()
			Expect(ch).NotTo(BeNil())
		})
	})

	Describe("Start and event processing", func() {
		It("should record events flowing through the channel", func() {
			collector.Start(ctx)

			collector.EventChannel() <- monitor.Event{
				Service:   "heroes-api",
				Success:   true,
				Latency:   20 * time.Millisecond,
				Timestamp: time.Now(),
			}

			Eventually(func() int64 {
				return mon.Metrics("heroes-api").TotalCalls
			}).Should(Equal(int64(1)))
		})

		It("should process failures as failures", func() {
			collector.Start(ctx)

			collector.Emit(monitor.Event{Service: "heroes-api", Success: false, Latency: time.Millisecond})

			Eventually(func() int64 {
				return mon.Metrics("heroes-api").FailedCalls
			}).Should(Equal(int64(1)))
		})
	})

	Describe("Emit", func() {
		It("should never block when the buffer is full", func() {
			// Collector not started, 2-slot buffer fills immediately.
			small := monitor.NewCollector(2, mon, log)

			done := make(chan struct{})
			go func() {
				for i := 0; i < 10; i++ {
					small.Emit(monitor.Event{Service: "heroes-api", Success: true})
				}
				close(done)
			}()

			Eventually(done).Should(BeClosed())
		})
	})

	Describe("shutdown", func() {
		It("should drain buffered events before stopping", func() {
			for i := 0; i < 5; i++ {
				collector.EventChannel() <- monitor.Event{
					Service: "heroes-api",
					Success: true,
					Latency: time.Millisecond,
				}
			}

			collector.Start(ctx)
			cancel()

			Eventually(func() int64 {
				return mon.Metrics("heroes-api").TotalCalls
			}).Should(Equal(int64(5)))
		})
	})
})
