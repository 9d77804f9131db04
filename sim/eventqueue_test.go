package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("EventQueue", func() {
	var (
		mockCtrl *gomock.Controller
		queue    *EventQueue
	)

	eventAt := func(t VTimeInSec) *MockEvent {
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(t).AnyTimes()

		return evt
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		queue = NewEventQueue()
	})

	It("should return nothing when empty", func() {
		Expect(queue.Pop()).To(BeNil())
		Expect(queue.Peek()).To(BeNil())
		Expect(queue.Len()).To(BeZero())
	})

	It("should pop on ticks and half ticks in time order", func() {
		for _, t := range []VTimeInSec{7, 0.5, 3, 12.5, 3.5, 0, 9} {
			queue.Push(eventAt(t))
		}

		times := []VTimeInSec{}
		for queue.Len() > 0 {
			times = append(times, queue.Pop().Time())
		}

		Expect(times).To(Equal([]VTimeInSec{0, 0.5, 3, 3.5, 7, 9, 12.5}))
	})

	It("should keep the push order of simultaneous events", func() {
		simultaneous := []Event{}
		for i := 0; i < 20; i++ {
			evt := eventAt(3)
			simultaneous = append(simultaneous, evt)
			queue.Push(evt)
		}

		earlier := eventAt(2.5)
		queue.Push(earlier)

		Expect(queue.Peek()).To(BeIdenticalTo(earlier))
		Expect(queue.Pop()).To(BeIdenticalTo(earlier))

		for _, evt := range simultaneous {
			Expect(queue.Pop()).To(BeIdenticalTo(evt))
		}
	})
})
