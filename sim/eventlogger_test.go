package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/mock/gomock"
)

var _ = Describe("EventLogger", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
		logs     *logtest.Hook
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()

		var logger *logrus.Logger
		logger, logs = logtest.NewNullLogger()
		logger.SetLevel(logrus.TraceLevel)

		engine.AcceptHook(NewEventLogger(logger))
	})

	It("should log each event once before it is handled", func() {
		handler := NewMockHandler(mockCtrl)
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(VTimeInSec(2.5)).AnyTimes()
		evt.EXPECT().Handler().Return(handler).AnyTimes()
		handler.EXPECT().Handle(evt).Return(nil)

		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())

		Expect(logs.AllEntries()).To(HaveLen(1))
		entry := logs.LastEntry()
		Expect(entry.Level).To(Equal(logrus.TraceLevel))
		Expect(entry.Data).To(HaveKeyWithValue("time", 2.5))
		Expect(entry.Data["target"]).To(ContainSubstring("MockHandler"))
	})
})
