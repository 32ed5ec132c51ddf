package vm

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PageTable", func() {
	var table *PageTable

	BeforeEach(func() {
		table = NewPageTable(64, 32)
	})

	It("should start with every page invalid", func() {
		Expect(table.NumPages()).To(Equal(uint64(64)))
		Expect(table.NumFrames()).To(Equal(uint64(32)))

		for _, e := range table.Entries() {
			Expect(e.Valid).To(BeFalse())
		}
	})

	It("should set and read an entry", func() {
		Expect(table.Set(4, 7, true)).To(Succeed())

		e, err := table.Entry(4)

		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(Equal(PageTableEntry{FrameNumber: 7, Valid: true}))
	})

	It("should reject pages outside of the table", func() {
		err := table.Set(64, 0, true)
		Expect(err).To(MatchError(ErrInvalidPage))

		_, err = table.Entry(97)
		Expect(err).To(MatchError(ErrInvalidPage))
	})

	It("should reject frames outside of memory", func() {
		err := table.Set(0, 32, true)

		Expect(err).To(MatchError(ErrInvalidFrame))
		e, _ := table.Entry(0)
		Expect(e.Valid).To(BeFalse())
	})

	It("should not expose its storage", func() {
		entries := table.Entries()
		entries[0].Valid = true

		e, _ := table.Entry(0)
		Expect(e.Valid).To(BeFalse())
	})

	It("should randomize deterministically", func() {
		other := NewPageTable(64, 32)

		table.Randomize(rand.New(rand.NewSource(42)))
		other.Randomize(rand.New(rand.NewSource(42)))

		Expect(table.Entries()).To(Equal(other.Entries()))

		valid := 0
		for _, e := range table.Entries() {
			Expect(e.FrameNumber).To(BeNumerically("<", 32))
			if e.Valid {
				valid++
			}
		}
		Expect(valid).To(BeNumerically(">", 0))
		Expect(valid).To(BeNumerically("<", 64))
	})

	It("should reset every entry", func() {
		Expect(table.Set(1, 1, true)).To(Succeed())

		table.Reset()

		e, _ := table.Entry(1)
		Expect(e).To(BeZero())
	})

	It("should panic on an empty table", func() {
		Expect(func() { NewPageTable(0, 32) }).To(Panic())
		Expect(func() { NewPageTable(64, 0) }).To(Panic())
	})
})
