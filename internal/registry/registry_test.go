package registry_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ddimaraki/bulwark/internal/cache"
	"github.com/ddimaraki/bulwark/internal/circuitbreaker"
	"github.com/ddimaraki/bulwark/internal/registry"
)

func TestRegistry(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Registry Suite")
}

var errDown = errors.New("upstream down")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Suppress logs in tests
	}))
}

func defaultConfig() circuitbreaker.Config {
	return circuitbreaker.Config{
		FailureThreshold: 3,
		RecoveryTimeout:  10 * time.Second,
	}
}

var _ = Describe("Registry", func() {
	var (
		reg *registry.Registry
		ctx context.Context
	)

	BeforeEach(func() {
		reg = registry.NewRegistry(testLogger())
		ctx = context.Background()
	})

	Describe("Register", func() {
		It("should reject an empty name", func() {
			err := reg.Register("", func(ctx context.Context, args ...any) (any, error) {
				return nil, nil
			}, nil, defaultConfig())

			Expect(err).To(MatchError(registry.ErrEmptyName))
		})

		It("should reject a nil primary", func() {
			err := reg.Register("heroes-api", nil, nil, defaultConfig())

			Expect(err).To(MatchError(registry.ErrNilPrimary))
		})

		It("should reject an invalid breaker config", func() {
			err := reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
				return nil, nil
			}, nil, circuitbreaker.Config{})

			Expect(err).To(MatchError(circuitbreaker.ErrInvalidThreshold))
		})

		It("should list registered services sorted", func() {
			noop := func(ctx context.Context, args ...any) (any, error) { return nil, nil }

			Expect(reg.Register("zeta", noop, nil, defaultConfig())).To(Succeed())
			Expect(reg.Register("alpha", noop, nil, defaultConfig())).To(Succeed())

			Expect(reg.Names()).To(Equal([]string{"alpha", "zeta"}))
		})
	})

	Describe("Invoke", func() {
		It("should fail with ErrNotRegistered for an unknown name", func() {
			_, err := reg.Invoke(ctx, "ghost")

			Expect(err).To(MatchError(registry.ErrNotRegistered))
			Expect(err.Error()).To(ContainSubstring("ghost"))
		})

		It("should return the primary result on success", func() {
			reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
				return "payload", nil
			}, nil, defaultConfig())

			value, err := reg.Invoke(ctx, "heroes-api")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("payload"))
		})

		It("should forward invocation arguments to the primary", func() {
			reg.Register("echo", func(ctx context.Context, args ...any) (any, error) {
				return args, nil
			}, nil, defaultConfig())

			value, err := reg.Invoke(ctx, "echo", "one", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal([]any{"one", 2}))
		})

		Context("without a fallback", func() {
			It("should propagate the primary error", func() {
				reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
					return nil, errDown
				}, nil, defaultConfig())

				_, err := reg.Invoke(ctx, "heroes-api")
				Expect(err).To(MatchError(errDown))
			})

			It("should surface ErrCircuitOpen once the breaker trips", func() {
				reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
					return nil, errDown
				}, nil, defaultConfig())

				for i := 0; i < 3; i++ {
					reg.Invoke(ctx, "heroes-api")
				}

				_, err := reg.Invoke(ctx, "heroes-api")
				Expect(err).To(MatchError(circuitbreaker.ErrCircuitOpen))
			})
		})

		Context("with a fallback", func() {
			It("should engage the fallback on primary failure", func() {
				reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
					return nil, errDown
				}, func(ctx context.Context, args ...any) (any, error) {
					return "degraded payload", nil
				}, defaultConfig())

				value, err := reg.Invoke(ctx, "heroes-api")
				Expect(err).NotTo(HaveOccurred())
				Expect(value).To(Equal("degraded payload"))
			})

			It("should forward arguments to the fallback too", func() {
				reg.Register("echo", func(ctx context.Context, args ...any) (any, error) {
					return nil, errDown
				}, func(ctx context.Context, args ...any) (any, error) {
					return args, nil
				}, defaultConfig())

				value, err := reg.Invoke(ctx, "echo", 7)
				Expect(err).NotTo(HaveOccurred())
				Expect(value).To(Equal([]any{7}))
			})

			It("should propagate a fallback error unmodified", func() {
				errFallback := errors.New("fallback exploded")

				reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
					return nil, errDown
				}, func(ctx context.Context, args ...any) (any, error) {
					return nil, errFallback
				}, defaultConfig())

				_, err := reg.Invoke(ctx, "heroes-api")
				Expect(err).To(MatchError(errFallback))
				Expect(errors.Is(err, errDown)).To(BeFalse())
			})

			It("should not consult the fallback on success", func() {
				fallbackCalled := false

				reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
					return "fine", nil
				}, func(ctx context.Context, args ...any) (any, error) {
					fallbackCalled = true
					return nil, nil
				}, defaultConfig())

				reg.Invoke(ctx, "heroes-api")
				Expect(fallbackCalled).To(BeFalse())
			})
		})

		Context("degrading under sustained failure", func() {
			It("should serve identical fallback payloads while fast-failing", func() {
				responses := cache.New("responses")
				static := map[string]any{"data": []any{}, "status": "degraded"}

				var primaryCalls atomic.Int32

				reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
					primaryCalls.Add(1)
					return nil, errDown
				}, registry.Callable(responses.Fallback("heroes-api", static)), circuitbreaker.Config{
					FailureThreshold: 3,
					RecoveryTimeout:  10 * time.Second,
				})

				var payloads []any
				for i := 0; i < 5; i++ {
					value, err := reg.Invoke(ctx, "heroes-api")
					Expect(err).NotTo(HaveOccurred())
					payloads = append(payloads, value)
				}

				// Calls four and five fail fast without touching the primary.
				Expect(primaryCalls.Load()).To(Equal(int32(3)))

				for _, payload := range payloads {
					Expect(payload).To(Equal(static))
				}

				state, err := reg.Status("heroes-api")
				Expect(err).NotTo(HaveOccurred())
				Expect(state.Status).To(Equal(circuitbreaker.StatusUnavailable))
				Expect(state.Failures).To(Equal(3))
			})
		})
	})

	Describe("re-registration", func() {
		It("should replace the primary and reset the breaker", func() {
			reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
				return nil, errDown
			}, nil, circuitbreaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})

			reg.Invoke(ctx, "heroes-api")

			state, _ := reg.Status("heroes-api")
			Expect(state.Status).To(Equal(circuitbreaker.StatusUnavailable))

			Expect(reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
				return "recovered", nil
			}, nil, defaultConfig())).To(Succeed())

			value, err := reg.Invoke(ctx, "heroes-api")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("recovered"))

			state, _ = reg.Status("heroes-api")
			Expect(state.Status).To(Equal(circuitbreaker.StatusAvailable))
			Expect(state.Failures).To(BeZero())
		})
	})

	Describe("Status", func() {
		It("should fail with ErrNotRegistered for an unknown name", func() {
			_, err := reg.Status("ghost")
			Expect(err).To(MatchError(registry.ErrNotRegistered))
		})

		It("should expose the failure bookkeeping", func() {
			reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
				return nil, errDown
			}, nil, defaultConfig())

			reg.Invoke(ctx, "heroes-api")
			reg.Invoke(ctx, "heroes-api")

			state, err := reg.Status("heroes-api")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Failures).To(Equal(2))
			Expect(state.LastFailure.IsZero()).To(BeFalse())
		})
	})

	Describe("States", func() {
		It("should cover every registered service", func() {
			noop := func(ctx context.Context, args ...any) (any, error) { return nil, nil }

			reg.Register("alpha", noop, nil, defaultConfig())
			reg.Register("beta", noop, nil, defaultConfig())

			states := reg.States()
			Expect(states).To(HaveLen(2))
			Expect(states).To(HaveKey("alpha"))
			Expect(states).To(HaveKey("beta"))
		})
	})

	Describe("concurrent invocations", func() {
		It("should stay consistent under parallel callers", func() {
			var calls atomic.Int64

			reg.Register("heroes-api", func(ctx context.Context, args ...any) (any, error) {
				calls.Add(1)
				return "ok", nil
			}, nil, circuitbreaker.Config{FailureThreshold: 5, RecoveryTimeout: time.Minute})

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 25; j++ {
						_, err := reg.Invoke(context.Background(), "heroes-api")
						Expect(err).NotTo(HaveOccurred())
					}
				}()
			}
			wg.Wait()

			Expect(calls.Load()).To(Equal(int64(500)))
		})
	})
})
