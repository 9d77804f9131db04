package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Names", func() {
	It("should parse name", func() {
		name, err := ParseName("Line[0].Oven[1]")

		Expect(err).NotTo(HaveOccurred())
		Expect(name.Tokens[0].ElemName).To(Equal("Line"))
		Expect(name.Tokens[0].Index).To(Equal([]int{0}))
		Expect(name.Tokens[1].ElemName).To(Equal("Oven"))
		Expect(name.Tokens[1].Index).To(Equal([]int{1}))
	})

	It("should parse multi-dimensional index", func() {
		name, err := ParseName("Line[0][1].Oven")

		Expect(err).NotTo(HaveOccurred())
		Expect(name.Tokens[0].Index).To(Equal([]int{0, 1}))
	})

	DescribeTable("invalid names",
		func(name string) {
			err := ValidateName(name)

			var cfgErr *ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(func() { NameMustBeValid(name) }).To(Panic())
		},
		Entry("empty", ""),
		Entry("underscore", "Screen_Printer"),
		Entry("dash", "Screen-Printer"),
		Entry("lower case", "printer"),
		Entry("unclosed bracket", "Oven[0"),
		Entry("unopened bracket", "Oven0]"),
		Entry("empty element", "Line..Oven"),
		Entry("non-integer index", "Oven[a]"),
	)

	It("should accept valid names", func() {
		Expect(ValidateName("Line.ScreenPrinter")).To(Succeed())
		Expect(ValidateName("Line.Conveyor[3]")).To(Succeed())
	})

	It("should build name", func() {
		Expect(BuildName("", "Line")).To(Equal("Line"))
		Expect(BuildName("Line", "Sink")).To(Equal("Line.Sink"))
		Expect(BuildNameWithIndex("Line", "Conveyor", 2)).
			To(Equal("Line.Conveyor[2]"))
	})
})

var _ = Describe("IDGenerator", func() {
	It("should generate sequential ids", func() {
		g := NewSequentialIDGenerator()

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
	})

	It("should generate unique prefixed ids", func() {
		g := NewUniqueIDGenerator("run_")
		id := g.Generate()

		Expect(id).To(HavePrefix("run_"))
		Expect(id).NotTo(Equal(g.Generate()))
	})
})
