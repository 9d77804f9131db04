package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type recordingHook struct {
	positions []*HookPos
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
}

type countingFinisher struct {
	count int
	at    VTimeInSec
}

func (h *countingFinisher) Finish(now VTimeInSec) {
	h.count++
	h.at = now
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := NewMockEvent(mockCtrl)
		evt2 := NewMockEvent(mockCtrl)
		evt3 := NewMockEvent(mockCtrl)
		evt4 := NewMockEvent(mockCtrl)

		evt1.EXPECT().Time().Return(VTimeInSec(4.0)).AnyTimes()
		evt1.EXPECT().Handler().Return(handler1).AnyTimes()
		evt2.EXPECT().Time().Return(VTimeInSec(2.0)).AnyTimes()
		evt2.EXPECT().Handler().Return(handler2).AnyTimes()
		evt3.EXPECT().Time().Return(VTimeInSec(3.0)).AnyTimes()
		evt3.EXPECT().Handler().Return(handler1).AnyTimes()
		evt4.EXPECT().Time().Return(VTimeInSec(5.0)).AnyTimes()
		evt4.EXPECT().Handler().Return(handler1).AnyTimes()
		handleEvt2 := handler2.EXPECT().Handle(evt2).DoAndReturn(
			func(e Event) error {
				engine.Schedule(evt3)
				engine.Schedule(evt4)
				return nil
			})
		handleEvt3 := handler1.EXPECT().Handle(evt3).Return(nil).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().Handle(evt1).Return(nil).After(handleEvt3)
		handler1.EXPECT().Handle(evt4).Return(nil).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(5.0)))
	})

	It("should handle events of the same time in the order of scheduling", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := NewMockEvent(mockCtrl)
		evt2 := NewMockEvent(mockCtrl)

		evt1.EXPECT().Time().Return(VTimeInSec(2.0)).AnyTimes()
		evt1.EXPECT().Handler().Return(handler).AnyTimes()
		evt2.EXPECT().Time().Return(VTimeInSec(2.0)).AnyTimes()
		evt2.EXPECT().Handler().Return(handler).AnyTimes()

		first := handler.EXPECT().Handle(evt1).Return(nil)
		handler.EXPECT().Handle(evt2).Return(nil).After(first)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
	})

	It("should panic when scheduling into the past", func() {
		handler := NewMockHandler(mockCtrl)
		evt := NewMockEvent(mockCtrl)
		past := NewMockEvent(mockCtrl)

		evt.EXPECT().Time().Return(VTimeInSec(2.0)).AnyTimes()
		evt.EXPECT().Handler().Return(handler).AnyTimes()
		past.EXPECT().Time().Return(VTimeInSec(1.0)).AnyTimes()
		handler.EXPECT().Handle(evt).Return(nil)

		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())

		Expect(func() { engine.Schedule(past) }).To(
			PanicWith(BeAssignableToTypeOf(&InvariantViolation{})))
	})

	It("should run until the horizon, inclusive", func() {
		handler := NewMockHandler(mockCtrl)
		atHorizon := NewMockEvent(mockCtrl)
		after := NewMockEvent(mockCtrl)

		atHorizon.EXPECT().Time().Return(VTimeInSec(10.0)).AnyTimes()
		atHorizon.EXPECT().Handler().Return(handler).AnyTimes()
		after.EXPECT().Time().Return(VTimeInSec(10.5)).AnyTimes()
		after.EXPECT().Handler().Return(handler).AnyTimes()

		handler.EXPECT().Handle(atHorizon).Return(nil)

		engine.Schedule(atHorizon)
		engine.Schedule(after)

		Expect(engine.RunUntil(10)).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(10)))
		Expect(engine.PendingEvents()).To(Equal(1))
	})

	It("should move the time to the horizon when the queue drains", func() {
		Expect(engine.RunUntil(42)).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(42)))
	})

	It("should refuse a horizon in the past", func() {
		Expect(engine.RunUntil(5)).To(Succeed())

		err := engine.RunUntil(3)

		var violation *InvariantViolation
		Expect(errors.As(err, &violation)).To(BeTrue())
	})

	It("should stop on handler error", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := NewMockEvent(mockCtrl)
		evt2 := NewMockEvent(mockCtrl)
		failure := NewConfigurationError("Test", "no task")

		evt1.EXPECT().Time().Return(VTimeInSec(1.0)).AnyTimes()
		evt1.EXPECT().Handler().Return(handler).AnyTimes()
		evt2.EXPECT().Time().Return(VTimeInSec(2.0)).AnyTimes()
		evt2.EXPECT().Handler().Return(handler).AnyTimes()
		handler.EXPECT().Handle(evt1).Return(failure)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		err := engine.Run()

		Expect(errors.Is(err, failure)).To(BeTrue())
		Expect(engine.PendingEvents()).To(Equal(1))
	})

	It("should invoke hooks around events", func() {
		hook := &recordingHook{}
		engine.AcceptHook(hook)

		handler := NewMockHandler(mockCtrl)
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(VTimeInSec(1.0)).AnyTimes()
		evt.EXPECT().Handler().Return(handler).AnyTimes()
		handler.EXPECT().Handle(evt).Return(nil)

		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())

		Expect(hook.positions).To(Equal(
			[]*HookPos{HookPosBeforeEvent, HookPosAfterEvent}))
		Expect(func() { engine.AcceptHook(hook) }).To(Panic())
	})

	It("should hold events while paused", func() {
		handler := NewMockHandler(mockCtrl)
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(VTimeInSec(1.0)).AnyTimes()
		evt.EXPECT().Handler().Return(handler).AnyTimes()
		handler.EXPECT().Handle(evt).Return(nil)

		engine.Schedule(evt)
		engine.Pause()
		engine.Pause()

		done := make(chan error)
		go func() { done <- engine.Run() }()

		Consistently(done).ShouldNot(Receive())
		Expect(engine.PendingEvents()).To(Equal(1))

		engine.Continue()
		Eventually(done).Should(Receive(BeNil()))
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(1)))
	})

	It("should call finishers once", func() {
		h := &countingFinisher{}
		engine.OnFinish(h)

		Expect(engine.RunUntil(7)).To(Succeed())
		engine.Finished()
		engine.Finished()

		Expect(h.count).To(Equal(1))
		Expect(h.at).To(Equal(VTimeInSec(7)))
	})
})
