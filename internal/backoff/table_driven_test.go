package backoff_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ddimaraki/bulwark/internal/backoff"
)

var _ = Describe("Table-Driven Backoff Tests", func() {
	DescribeTable("All strategies can be instantiated",
		func(createStrat func() backoff.Strategy) {
			strat := createStrat()
			Expect(strat).NotTo(BeNil())
		},
		Entry("Exponential", func() backoff.Strategy { return backoff.NewExponentialStrategy(1) }),
		Entry("Constant", func() backoff.Strategy { return backoff.NewConstantStrategy(time.Second) }),
		Entry("Jitter over Exponential", func() backoff.Strategy {
			return backoff.NewJitterStrategy(backoff.NewExponentialStrategy(1), 0.1)
		}),
	)

	DescribeTable("Exponential delay schedule",
		func(factor float64, attempt int, expected time.Duration) {
			strat := backoff.NewExponentialStrategy(factor)
			Expect(strat.Delay(attempt)).To(Equal(expected))
		},
		Entry("factor 1, first wait", 1.0, 0, time.Second),
		Entry("factor 1, second wait", 1.0, 1, 2*time.Second),
		Entry("factor 1, third wait", 1.0, 2, 4*time.Second),
		Entry("factor 0.1, first wait", 0.1, 0, 100*time.Millisecond),
		Entry("factor 0.1, fourth wait", 0.1, 3, 800*time.Millisecond),
		Entry("factor 2, third wait", 2.0, 2, 8*time.Second),
		Entry("factor 0 never waits", 0.0, 4, time.Duration(0)),
	)
})
