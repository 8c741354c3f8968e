package dis_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/oisee/i8080-decoder/pkg/dis"
)

var _ = Describe("Disassemble", func() {
	DescribeTable("instruction text",
		func(buf []byte, want string) {
			ins, err := dis.Decode(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(ins).To(HaveLen(1))
			Expect(dis.Disassemble(ins[0])).To(Equal(want))
		},
		Entry("no operands", []byte{0x00}, "NOP"),
		Entry("register pair", []byte{0x46}, "MOV B,M"),
		Entry("8-bit immediate", []byte{0x06, 0x42}, "MVI B,42h"),
		Entry("8-bit immediate with letter digit", []byte{0xfe, 0xa0}, "CPI 0A0h"),
		Entry("16-bit immediate", []byte{0x31, 0xff, 0xff}, "LXI SP,0FFFFh"),
		Entry("address", []byte{0xc3, 0x34, 0x12}, "JMP 1234h"),
		Entry("restart", []byte{0xef}, "RST 5"),
		Entry("undefined opcode", []byte{0xdd}, "NOP"),
	)

	It("should list instructions with offsets", func() {
		lines, err := dis.Default().Listing(multBin)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(HaveLen(14))

		offsets := make([]int, len(lines))
		for i, l := range lines {
			offsets[i] = l.Offset
		}
		Expect(offsets).To(Equal([]int{0, 2, 4, 5, 6, 7, 8, 11, 12, 15, 16, 17, 18, 21}))
		Expect(dis.Disassemble(lines[6].Inst)).To(Equal("JZ 0015h"))
	})

	It("should keep the lines before a truncation", func() {
		lines, err := dis.Default().Listing([]byte{0x00, 0x3e, 0x01, 0xcd, 0x00})
		Expect(errors.Is(err, dis.ErrTruncated)).To(BeTrue())
		Expect(lines).To(HaveLen(2))
		Expect(lines[1].Offset).To(Equal(1))
	})
})
