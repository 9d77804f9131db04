package sim

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Clock", func() {
	It("should find the tick at or after a time", func() {
		Expect(TickAtOrAfter(102)).To(Equal(VTimeInSec(102)))
		Expect(TickAtOrAfter(102.5)).To(Equal(VTimeInSec(103)))
	})

	It("should find the half tick a belt starts at", func() {
		Expect(HalfTickAfter(4)).To(Equal(VTimeInSec(4.5)))
		Expect(HalfTickAfter(4.5)).To(Equal(VTimeInSec(5.5)))
	})

	It("should tell whole ticks from half ticks", func() {
		Expect(IsOnTick(3)).To(BeTrue())
		Expect(IsOnTick(3.5)).To(BeFalse())
	})

	It("should count ticks", func() {
		Expect(Ticks(25)).To(Equal(uint64(25)))
	})

	It("should reject invalid times", func() {
		Expect(func() { TickAtOrAfter(VTimeInSec(math.NaN())) }).To(Panic())
		Expect(func() { Ticks(-1) }).To(Panic())
	})
})
