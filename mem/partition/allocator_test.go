package partition_test

import (
	"math/rand"

	"github.com/sarchlab/memsim/mem/partition"
	"github.com/sarchlab/memsim/mem/vm"
	"github.com/sarchlab/memsim/sim/hooking"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const kib = 1024

type lastFit struct{}

func (lastFit) FindBlock(blocks []partition.Block, size uint64) (int, bool) {
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].IsFree && blocks[i].Size >= size {
			return i, true
		}
	}

	return -1, false
}

type brokenPolicy struct{}

func (brokenPolicy) FindBlock([]partition.Block, uint64) (int, bool) {
	return 7, true
}

var _ = Describe("Allocator", func() {
	var (
		mockCtrl *gomock.Controller
		a        *partition.Allocator
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		a = partition.MakeBuilder().WithTotalSize(1048576).Build("Memory")
	})

	AfterEach(func() {
		Expect(a.Validate()).To(Succeed())
		mockCtrl.Finish()
	})

	// fragment leaves free blocks of 200K, 150K and 50K separated by
	// allocated blocks, with the rest of the memory allocated.
	fragment := func() {
		sizes := []uint64{200, 10, 150, 10, 50, 10, 594}
		for i, s := range sizes {
			Expect(a.Allocate(partition.FirstFit, vm.PID(i+1), s*kib)).To(BeTrue())
		}

		a.Deallocate(1)
		a.Deallocate(3)
		a.Deallocate(5)
	}

	It("should start with one free block", func() {
		Expect(a.Snapshot()).To(Equal([]partition.Block{
			{StartAddress: 0, Size: 1048576, IsFree: true},
		}))
	})

	It("should allocate from address 0 with first fit", func() {
		Expect(a.Allocate(partition.FirstFit, 1, 100*kib)).To(BeTrue())
		Expect(a.Allocate(partition.FirstFit, 2, 150*kib)).To(BeTrue())
		Expect(a.Allocate(partition.FirstFit, 3, 200*kib)).To(BeTrue())

		Expect(a.Snapshot()).To(Equal([]partition.Block{
			{StartAddress: 0, Size: 102400, PID: 1},
			{StartAddress: 102400, Size: 153600, PID: 2},
			{StartAddress: 256000, Size: 204800, PID: 3},
			{StartAddress: 460800, Size: 587776, IsFree: true},
		}))
	})

	It("should not merge a freed block with allocated neighbors", func() {
		a.Allocate(partition.FirstFit, 1, 100*kib)
		a.Allocate(partition.FirstFit, 2, 150*kib)
		a.Allocate(partition.FirstFit, 3, 200*kib)

		a.Deallocate(2)

		Expect(a.Snapshot()).To(Equal([]partition.Block{
			{StartAddress: 0, Size: 102400, PID: 1},
			{StartAddress: 102400, Size: 153600, IsFree: true},
			{StartAddress: 256000, Size: 204800, PID: 3},
			{StartAddress: 460800, Size: 587776, IsFree: true},
		}))

		a.Deallocate(3)

		Expect(a.Snapshot()).To(Equal([]partition.Block{
			{StartAddress: 0, Size: 102400, PID: 1},
			{StartAddress: 102400, Size: 946176, IsFree: true},
		}))
	})

	It("should merge back into a single block", func() {
		a.Allocate(partition.FirstFit, 1, 100*kib)
		a.Allocate(partition.FirstFit, 2, 150*kib)
		a.Allocate(partition.FirstFit, 3, 200*kib)

		a.Deallocate(1)
		a.Deallocate(3)
		a.Deallocate(2)

		Expect(a.Snapshot()).To(Equal([]partition.Block{
			{StartAddress: 0, Size: 1048576, IsFree: true},
		}))
	})

	It("should convert an exactly fitting block in place", func() {
		Expect(a.Allocate(partition.FirstFit, 1, 1048576)).To(BeTrue())

		Expect(a.Snapshot()).To(Equal([]partition.Block{
			{StartAddress: 0, Size: 1048576, PID: 1},
		}))
	})

	It("should pick the smallest candidate with best fit", func() {
		fragment()

		Expect(a.Allocate(partition.BestFit, 8, 50*kib)).To(BeTrue())

		Expect(a.BlocksOf(8)).To(Equal([]partition.Block{
			{StartAddress: 378880, Size: 51200, PID: 8},
		}))
		Expect(a.FragmentationReport().FreeBlockCount).To(Equal(2))
	})

	It("should pick the largest candidate with worst fit", func() {
		fragment()

		Expect(a.Allocate(partition.WorstFit, 8, 50*kib)).To(BeTrue())

		Expect(a.Snapshot()[:2]).To(Equal([]partition.Block{
			{StartAddress: 0, Size: 51200, PID: 8},
			{StartAddress: 51200, Size: 153600, IsFree: true},
		}))
	})

	It("should pick the first candidate with first fit", func() {
		fragment()

		Expect(a.Allocate(partition.FirstFit, 8, 100*kib)).To(BeTrue())

		Expect(a.BlocksOf(8)[0].StartAddress).To(Equal(uint64(0)))
	})

	It("should break ties by address", func() {
		for i, s := range []uint64{100, 10, 100, 10, 100, 704} {
			a.Allocate(partition.FirstFit, vm.PID(i+1), s*kib)
		}
		a.Deallocate(1)
		a.Deallocate(3)
		a.Deallocate(5)

		Expect(a.Allocate(partition.BestFit, 10, 30*kib)).To(BeTrue())
		Expect(a.BlocksOf(10)[0].StartAddress).To(Equal(uint64(0)))

		Expect(a.Allocate(partition.WorstFit, 11, 30*kib)).To(BeTrue())
		Expect(a.BlocksOf(11)[0].StartAddress).To(Equal(uint64(110 * kib)))
	})

	It("should fail without a large enough block", func() {
		fragment()
		before := a.Snapshot()

		Expect(a.Allocate(partition.FirstFit, 8, 201*kib)).To(BeFalse())
		Expect(a.Allocate(partition.BestFit, 8, 201*kib)).To(BeFalse())
		Expect(a.Allocate(partition.WorstFit, 8, 201*kib)).To(BeFalse())

		Expect(a.Snapshot()).To(Equal(before))
	})

	It("should fail for more than the memory size", func() {
		Expect(a.Allocate(partition.FirstFit, 1, 2*1048576)).To(BeFalse())
	})

	It("should refuse empty requests", func() {
		Expect(a.Allocate(partition.FirstFit, 1, 0)).To(BeFalse())
		Expect(a.Snapshot()).To(HaveLen(1))
	})

	It("should ignore an unknown process", func() {
		a.Allocate(partition.FirstFit, 1, 100*kib)
		before := a.Snapshot()

		a.Deallocate(42)

		Expect(a.Snapshot()).To(Equal(before))
	})

	It("should free every block of a process", func() {
		a.Allocate(partition.FirstFit, 1, 100*kib)
		a.Allocate(partition.FirstFit, 2, 100*kib)
		a.Allocate(partition.FirstFit, 1, 100*kib)
		Expect(a.BlocksOf(1)).To(HaveLen(2))

		a.Deallocate(1)

		Expect(a.BlocksOf(1)).To(BeEmpty())
		Expect(a.Snapshot()).To(Equal([]partition.Block{
			{StartAddress: 0, Size: 102400, IsFree: true},
			{StartAddress: 102400, Size: 102400, PID: 2},
			{StartAddress: 204800, Size: 843776, IsFree: true},
		}))
	})

	It("should coalesce idempotently", func() {
		fragment()
		a.Deallocate(2)
		a.Deallocate(4)

		a.Coalesce()
		once := a.Snapshot()
		a.Coalesce()

		Expect(a.Snapshot()).To(Equal(once))
		Expect(once).To(HaveLen(3))
	})

	It("should accept custom placement policies", func() {
		fragment()

		Expect(a.AllocateWith(lastFit{}, "last-fit", 8, 50*kib)).To(BeTrue())

		Expect(a.BlocksOf(8)[0].StartAddress).To(Equal(uint64(378880)))
	})

	It("should panic when a policy chooses an impossible block", func() {
		Expect(func() {
			a.AllocateWith(brokenPolicy{}, nil, 1, kib)
		}).To(Panic())
	})

	It("should reset", func() {
		fragment()

		a.Reset()

		Expect(a.Snapshot()).To(HaveLen(1))
	})

	It("should keep its invariants through random operations", func() {
		rng := rand.New(rand.NewSource(1))
		strategies := []partition.Strategy{
			partition.FirstFit, partition.BestFit, partition.WorstFit,
		}

		for i := 0; i < 5000; i++ {
			pid := vm.PID(rng.Intn(20) + 1)

			if rng.Intn(3) == 0 {
				a.Deallocate(pid)
			} else {
				s := strategies[rng.Intn(len(strategies))]
				a.Allocate(s, pid, uint64(rng.Intn(128*kib)+1))
			}

			Expect(a.Validate()).To(Succeed())

			blocks := a.Snapshot()
			for j := 0; j+1 < len(blocks); j++ {
				if blocks[j].IsFree {
					Expect(blocks[j+1].IsFree).To(BeFalse())
				}
			}

			a.Coalesce()
			Expect(a.Snapshot()).To(Equal(blocks))
		}

		for pid := vm.PID(1); pid <= 20; pid++ {
			a.Deallocate(pid)
		}

		Expect(a.Snapshot()).To(Equal([]partition.Block{
			{StartAddress: 0, Size: 1048576, IsFree: true},
		}))
	})

	Context("with hooks", func() {
		var hook *MockHook

		BeforeEach(func() {
			hook = NewMockHook(mockCtrl)
			a.AcceptHook(hook)
		})

		expectPos := func(pos *hooking.HookPos, b partition.Block, detail any) *gomock.Call {
			return hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Pos).To(BeIdenticalTo(pos))
				Expect(ctx.Item).To(Equal(b))

				if detail == nil {
					Expect(ctx.Detail).To(BeNil())
				} else {
					Expect(ctx.Detail).To(Equal(detail))
				}
			})
		}

		It("should report what happens", func() {
			gomock.InOrder(
				expectPos(partition.HookPosAllocate,
					partition.Block{StartAddress: 0, Size: kib, PID: 1}, partition.FirstFit),
				expectPos(partition.HookPosNoFit,
					partition.Block{Size: 2 * 1048576, PID: 2}, partition.BestFit),
				expectPos(partition.HookPosFree,
					partition.Block{StartAddress: 0, Size: kib, IsFree: true}, nil),
				expectPos(partition.HookPosMerge,
					partition.Block{StartAddress: 0, Size: 1048576, IsFree: true}, nil),
			)

			a.Allocate(partition.FirstFit, 1, kib)
			a.Allocate(partition.BestFit, 2, 2*1048576)
			a.Deallocate(1)
		})
	})
})

var _ = Describe("Builder", func() {
	It("should default to 1 MiB", func() {
		Expect(partition.MakeBuilder().Build("M").TotalSize()).To(Equal(uint64(1048576)))
	})

	It("should panic without memory", func() {
		Expect(func() { partition.MakeBuilder().WithTotalSize(0).Build("M") }).To(Panic())
	})
})
