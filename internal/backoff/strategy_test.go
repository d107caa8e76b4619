package backoff_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ddimaraki/bulwark/internal/backoff"
)

func TestBackoff(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Backoff Suite")
}

var _ = Describe("Exponential", func() {
	var strat backoff.Strategy

	BeforeEach(func() {
		strat = backoff.NewExponentialStrategy(0.5)
	})

	Describe("Delay", func() {
		It("should double the delay after every attempt", func() {
			Expect(strat.Delay(0)).To(Equal(500 * time.Millisecond))
			Expect(strat.Delay(1)).To(Equal(1 * time.Second))
			Expect(strat.Delay(2)).To(Equal(2 * time.Second))
			Expect(strat.Delay(3)).To(Equal(4 * time.Second))
		})

		Context("with a zero factor", func() {
			It("should never wait", func() {
				strat = backoff.NewExponentialStrategy(0)

				Expect(strat.Delay(0)).To(BeZero())
				Expect(strat.Delay(5)).To(BeZero())
			})
		})

		Context("with a negative factor", func() {
			It("should never wait", func() {
				strat = backoff.NewExponentialStrategy(-1)

				Expect(strat.Delay(2)).To(BeZero())
			})
		})

		Context("with a very large attempt number", func() {
			It("should clamp instead of overflowing", func() {
				Expect(strat.Delay(80)).To(Equal(time.Hour))
				Expect(strat.Delay(80)).To(BeNumerically(">", 0))
			})
		})

		Context("with a negative attempt number", func() {
			It("should return zero", func() {
				Expect(strat.Delay(-1)).To(BeZero())
			})
		})
	})
})

var _ = Describe("Constant", func() {
	It("should return the same delay for every attempt", func() {
		strat := backoff.NewConstantStrategy(250 * time.Millisecond)

		Expect(strat.Delay(0)).To(Equal(250 * time.Millisecond))
		Expect(strat.Delay(7)).To(Equal(250 * time.Millisecond))
	})

	It("should treat a negative delay as zero", func() {
		strat := backoff.NewConstantStrategy(-time.Second)

		Expect(strat.Delay(0)).To(BeZero())
	})
})

var _ = Describe("Jitter", func() {
	It("should keep the delay within the configured spread", func() {
		strat := backoff.NewJitterStrategy(backoff.NewConstantStrategy(time.Second), 0.2)

		for i := 0; i < 100; i++ {
			delay := strat.Delay(i)
			Expect(delay).To(BeNumerically(">=", time.Second))
			Expect(delay).To(BeNumerically("<=", 1200*time.Millisecond))
		}
	})

	It("should pass through a zero base delay", func() {
		strat := backoff.NewJitterStrategy(backoff.NewExponentialStrategy(0), 0.5)

		Expect(strat.Delay(3)).To(BeZero())
	})

	It("should pass through unchanged when the fraction is zero", func() {
		strat := backoff.NewJitterStrategy(backoff.NewConstantStrategy(time.Second), 0)

		Expect(strat.Delay(0)).To(Equal(time.Second))
	})
})
