package dis_test

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/oisee/i8080-decoder/pkg/dis"
	"github.com/oisee/i8080-decoder/pkg/inst"
)

// mult.bin: 8x8 shift-and-add multiplication routine.
var multBin = []byte{
	0x06, 0x00, 0x1e, 0x09, 0x79, 0x1f, 0x4f, 0x1d, 0xca, 0x15, 0x00,
	0x78, 0xd2, 0x10, 0x00, 0x82, 0x1f, 0x47, 0xc3, 0x04, 0x00, 0xc9,
}

func names(ins []dis.Instruction) []string {
	out := make([]string, len(ins))
	for i, in := range ins {
		out[i] = in.String()
	}
	return out
}

func hexTags(tags []inst.RawTag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = fmt.Sprintf("%02x", t)
	}
	return strings.Join(parts, " ")
}

// wellFormed builds a random stream with every operand present.
func wellFormed(r *rand.Rand, n int) []byte {
	cat := inst.DefaultCatalog()
	var buf []byte
	for i := 0; i < n; i++ {
		code := uint8(r.Intn(256))
		buf = append(buf, code)
		for j := 1; j < cat.ByteSize(code); j++ {
			buf = append(buf, uint8(r.Intn(256)))
		}
	}
	return buf
}

var _ = Describe("Decoder", func() {
	cat := inst.DefaultCatalog()

	Describe("Decode", func() {
		It("should decode a single NOP", func() {
			ins, err := dis.Decode([]byte{0x00})
			Expect(err).NotTo(HaveOccurred())
			Expect(ins).To(HaveLen(1))
			Expect(ins[0].Name).To(Equal("Nop"))
			Expect(ins[0].Payload()).To(BeEmpty())
		})

		It("should carry an 8-bit operand", func() {
			ins, err := dis.Decode([]byte{0x06, 0x42})
			Expect(err).NotTo(HaveOccurred())
			Expect(ins).To(Equal([]dis.Instruction{
				{Code: 0x06, Name: "MviB", Shape: inst.Imm8, Operands: [2]byte{0x42, 0}},
			}))
			Expect(ins[0].Payload()).To(Equal([]byte{0x42}))
		})

		It("should carry address bytes in buffer order", func() {
			ins, err := dis.Decode([]byte{0xc3, 0x34, 0x12})
			Expect(err).NotTo(HaveOccurred())
			Expect(ins).To(HaveLen(1))
			Expect(ins[0].Name).To(Equal("Jmp"))
			Expect(ins[0].Payload()).To(Equal([]byte{0x34, 0x12}))
			Expect(ins[0].Word()).To(Equal(uint16(0x1234)))
			Expect(ins[0].String()).To(Equal("Jmp(0x34, 0x12)"))
		})

		It("should decode the multiplication routine", func() {
			ins, err := dis.Decode(multBin)
			Expect(err).NotTo(HaveOccurred())
			Expect(names(ins)).To(Equal([]string{
				"MviB(0x00)", "MviE(0x09)", "MovAC", "Rar", "MovCA", "DcrE",
				"Jz(0x15, 0x00)", "MovAB", "Jnc(0x10, 0x00)", "AddD", "Rar",
				"MovBA", "Jmp(0x04, 0x00)", "Ret",
			}))
		})

		It("should map undefined opcodes to the fallback NOP", func() {
			for _, code := range []byte{0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38, 0xcb, 0xd9, 0xdd, 0xed, 0xfd} {
				ins, err := dis.Decode([]byte{code})
				Expect(err).NotTo(HaveOccurred())
				Expect(ins).To(Equal([]dis.Instruction{{Code: 0x00, Name: "Nop", Shape: inst.None}}))
			}
		})

		DescribeTable("truncated operands",
			func(buf []byte, missing int) {
				ins, err := dis.Decode(buf)
				Expect(ins).To(BeNil())
				Expect(errors.Is(err, dis.ErrTruncated)).To(BeTrue())

				var terr *dis.TruncatedError
				Expect(errors.As(err, &terr)).To(BeTrue())
				Expect(terr.Missing).To(Equal(missing))
				Expect(terr.Error()).To(HaveSuffix(fmt.Sprintf("expected %d bytes", missing)))
			},
			Entry("LXI B with no operand", []byte{0x01}, 2),
			Entry("LXI B with one operand byte", []byte{0x01, 0x00}, 1),
			Entry("MVI C with no operand", []byte{0x0e}, 1),
			Entry("MVI D with no operand", []byte{0x16}, 1),
			Entry("JMP missing the high byte", []byte{0xc3, 0x34}, 1),
			Entry("CALL after complete instructions", []byte{0x00, 0x06, 0x01, 0xcd}, 2),
		)

		It("should report where the truncated instruction starts", func() {
			_, err := dis.Decode([]byte{0x00, 0x00, 0xc3, 0x34})
			var terr *dis.TruncatedError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.Offset).To(Equal(2))
			Expect(terr.Code).To(Equal(uint8(0xc3)))
		})

		It("should accept a single-byte instruction at the end", func() {
			ins, err := dis.Decode([]byte{0xb2})
			Expect(err).NotTo(HaveOccurred())
			Expect(names(ins)).To(Equal([]string{"OraD"}))
		})
	})

	Describe("DecodeRaw", func() {
		It("should tag the multiplication routine", func() {
			Expect(hexTags(dis.DecodeRaw(multBin))).
				To(Equal("06 1e 79 1f 4f 1d ca 78 d2 82 1f 47 c3 c9"))
		})

		It("should tag a single NOP", func() {
			tags := dis.DecodeRaw([]byte{0x00})
			Expect(tags).To(Equal([]inst.RawTag{{Code: 0x00, Name: "NOP"}}))
		})

		It("should tag truncated instructions without failing", func() {
			Expect(dis.DecodeRaw([]byte{0x01})).To(Equal([]inst.RawTag{{Code: 0x01, Name: "LXI_B"}}))
			Expect(dis.DecodeRaw([]byte{0xc3, 0x34})).To(Equal([]inst.RawTag{{Code: 0xc3, Name: "JMP"}}))
			Expect(dis.DecodeRaw([]byte{0x0e})).To(Equal([]inst.RawTag{{Code: 0x0e, Name: "MVI_C"}}))
		})

		It("should map undefined opcodes to NOP", func() {
			Expect(dis.DecodeRaw([]byte{0xcb, 0xfd})).
				To(Equal([]inst.RawTag{{Code: 0x00, Name: "NOP"}, {Code: 0x00, Name: "NOP"}}))
		})

		It("should return nothing for an empty buffer", func() {
			Expect(dis.DecodeRaw(nil)).To(BeEmpty())
			ins, err := dis.Decode(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ins).To(BeEmpty())
		})
	})

	Describe("boundary agreement", func() {
		It("should consume exactly the shape length for every opcode", func() {
			for code := 0; code < 256; code++ {
				op := cat.Lookup(uint8(code))
				buf := make([]byte, op.Len())
				buf[0] = uint8(code)

				ins, err := dis.Decode(buf)
				Expect(err).NotTo(HaveOccurred(), "opcode 0x%02x", code)
				Expect(ins).To(HaveLen(1), "opcode 0x%02x", code)
				Expect(ins[0].Len()).To(Equal(len(buf)))
				Expect(dis.DecodeRaw(buf)).To(HaveLen(1), "opcode 0x%02x", code)
			}
		})

		It("should agree with DecodeRaw on well-formed streams", func() {
			r := rand.New(rand.NewSource(8080))
			for iter := 0; iter < 200; iter++ {
				buf := wellFormed(r, 1+r.Intn(64))

				ins, err := dis.Decode(buf)
				Expect(err).NotTo(HaveOccurred())
				tags := dis.DecodeRaw(buf)
				Expect(ins).To(HaveLen(len(tags)))

				consumed := 0
				for i := range ins {
					Expect(ins[i].Len()).To(Equal(cat.ByteSize(tags[i].Code)))
					Expect(ins[i].Shape.Arity()).To(Equal(len(ins[i].Payload())))
					consumed += ins[i].Len()
				}
				Expect(consumed).To(Equal(len(buf)))
			}
		})

		It("should never fail DecodeRaw on arbitrary bytes", func() {
			r := rand.New(rand.NewSource(1974))
			for iter := 0; iter < 200; iter++ {
				buf := make([]byte, r.Intn(48))
				r.Read(buf)

				tags := dis.DecodeRaw(buf)
				covered := 0
				for _, t := range tags {
					covered += cat.ByteSize(t.Code)
				}
				Expect(covered).To(BeNumerically(">=", len(buf)))
			}
		})
	})

	Describe("custom catalogs", func() {
		It("should decode against the catalog it was built from", func() {
			c := inst.NewCatalog(inst.ParseTableString("0x10\tLDX D16\n0x11\tOUT D8\n"))
			d := dis.NewDecoder(c)

			ins, err := d.Decode([]byte{0x10, 0xcd, 0xab, 0x11, 0x7f, 0x00})
			Expect(err).NotTo(HaveOccurred())
			Expect(names(ins)).To(Equal([]string{"Ldx(0xcd, 0xab)", "Out(0x7f)", "Nop"}))
			Expect(hexTags(d.DecodeRaw([]byte{0x10, 0xcd, 0xab, 0x11}))).To(Equal("10 11"))
		})
	})
})
