package paging_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memsim/paging"
)

// countingTagGenerator produces deterministic disk tags for tests.
type countingTagGenerator struct {
	count int
}

func (g *countingTagGenerator) Generate() string {
	g.count++
	return fmt.Sprintf("disk-%d", g.count)
}

// expectConsistent checks that every resident page sits in the frame that
// maps it back, and that no frame is mapped by two pages.
func expectConsistent(m *paging.PagedMemory) {
	frames := m.Frames()

	for _, p := range m.PageTable() {
		if !p.Resident {
			continue
		}

		Expect(frames[p.FrameNo].Mapped).To(BeTrue())
		Expect(frames[p.FrameNo].PageNo).To(Equal(p.PageNo))
	}
}

var _ = Describe("PagedMemory", func() {
	var m *paging.PagedMemory

	BeforeEach(func() {
		m = paging.MakeBuilder().
			WithMemSize(64).
			WithPageSize(1).
			WithMaxJobSize(64).
			WithTagGenerator(&countingTagGenerator{}).
			Build("Paging")
	})

	It("should reject access before any job is created", func() {
		_, err := m.Access(0, 0, paging.OpAdd)

		Expect(err).To(MatchError(paging.ErrNoCurrentJob))
	})

	It("should reject a job larger than the maximum job size", func() {
		_, err := m.CreateJob("J1", 65*paging.KB, 2)

		Expect(err).To(MatchError(paging.ErrJobTooLarge))

		_, ok := m.CurrentJob()
		Expect(ok).To(BeFalse())
	})

	It("should reject a job requesting more frames than the memory has",
		func() {
			_, err := m.CreateJob("J1", 4*paging.KB, 65)

			Expect(err).To(MatchError(paging.ErrInsufficientFrames))

			_, ok := m.CurrentJob()
			Expect(ok).To(BeFalse())
		})

	It("should reject a job requesting a non-positive frame count", func() {
		_, err := m.CreateJob("J1", 2*paging.KB, 0)
		Expect(err).To(MatchError(paging.ErrBadFrameCount))

		_, err = m.CreateJob("J1", 2*paging.KB, -1)
		Expect(err).To(MatchError(paging.ErrBadFrameCount))

		_, ok := m.CurrentJob()
		Expect(ok).To(BeFalse())
	})

	It("should keep the current job when a frame count is rejected", func() {
		_, err := m.CreateJob("J1", 2*paging.KB, 2)
		Expect(err).NotTo(HaveOccurred())

		_, err = m.Access(0, 0, paging.OpAdd)
		Expect(err).NotTo(HaveOccurred())

		_, err = m.CreateJob("J2", 2*paging.KB, -1)
		Expect(err).To(MatchError(paging.ErrBadFrameCount))

		job, ok := m.CurrentJob()
		Expect(ok).To(BeTrue())
		Expect(job.ID).To(Equal("J1"))
		Expect(m.PageTable()[0].Resident).To(BeTrue())
		expectConsistent(m)
	})

	It("should build a page table of non-resident pages with disk tags",
		func() {
			job, err := m.CreateJob("J1", 3*paging.KB+1, 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(job.PageCount).To(Equal(4), "page count rounds up")

			pages := m.PageTable()
			Expect(pages).To(HaveLen(4))

			for i, p := range pages {
				Expect(p.PageNo).To(Equal(i))
				Expect(p.Resident).To(BeFalse())
				Expect(p.Dirty).To(BeFalse())
				Expect(p.DiskTag).To(Equal(fmt.Sprintf("disk-%d", i+1)))
			}
		})

	It("should reserve the lowest-indexed empty frames for the job", func() {
		_, err := m.CreateJob("J1", 2*paging.KB, 3)
		Expect(err).NotTo(HaveOccurred())

		frames := m.Frames()
		Expect(frames[0].Allocated).To(BeTrue())
		Expect(frames[1].Allocated).To(BeTrue())
		Expect(frames[2].Allocated).To(BeTrue())
		Expect(frames[3].Allocated).To(BeFalse())
	})

	Context("with a 2-page job holding 2 frames", func() {
		BeforeEach(func() {
			_, err := m.CreateJob("J1", 2*paging.KB, 2)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should fault on the first access and fill an empty frame",
			func() {
				result, err := m.Access(0, 100, paging.OpAdd)

				Expect(err).NotTo(HaveOccurred())
				Expect(result.PageFault).To(BeTrue())
				Expect(result.Evicted).To(BeFalse())
				Expect(result.PhysAddr).To(Equal(uint64(100)))
				expectConsistent(m)
			})

		It("should not fault on a repeated access to the same page", func() {
			first, err := m.Access(0, 100, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())

			second, err := m.Access(0, 100, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.PageFault).To(BeFalse())
			Expect(second.PhysAddr).To(Equal(first.PhysAddr))
		})

		It("should compute the physical address from the frame", func() {
			_, err := m.Access(0, 0, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())

			result, err := m.Access(1, 7, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())

			// Page 1 fills frame 1.
			Expect(result.PhysAddr).To(Equal(uint64(1*1024 + 7)))
		})

		It("should reject a page number outside the page table", func() {
			_, err := m.Access(2, 0, paging.OpAdd)

			Expect(err).To(MatchError(paging.ErrPageOutOfRange))
		})

		It("should reject an offset beyond the page size", func() {
			_, err := m.Access(0, 1024, paging.OpAdd)

			Expect(err).To(MatchError(paging.ErrOffsetOutOfRange))
		})

		It("should mark the page dirty on a store and keep it on a load",
			func() {
				_, err := m.Access(0, 0, paging.OpStore)
				Expect(err).NotTo(HaveOccurred())

				pages := m.PageTable()
				Expect(pages[0].Dirty).To(BeTrue())
				Expect(pages[1].Dirty).To(BeFalse())

				_, err = m.Access(0, 0, paging.OpLoad)
				Expect(err).NotTo(HaveOccurred())

				Expect(m.PageTable()[0].Dirty).To(BeTrue())
			})
	})

	Context("with a 2-page job holding a single frame", func() {
		BeforeEach(func() {
			_, err := m.CreateJob("J1", 2*paging.KB, 1)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should evict the only resident page with FIFO", func() {
			result, err := m.Access(0, 0, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PageFault).To(BeTrue())
			Expect(result.Evicted).To(BeFalse())

			result, err = m.Access(1, 0, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PageFault).To(BeTrue())
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedPage).To(Equal(0))

			Expect(m.PageTable()[0].Resident).To(BeFalse())
			expectConsistent(m)

			result, err = m.Access(0, 0, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PageFault).To(BeTrue(),
				"the evicted page must fault again")
			Expect(result.EvictedPage).To(Equal(1))
		})
	})

	Context("with a 3-page job holding 2 frames", func() {
		BeforeEach(func() {
			_, err := m.CreateJob("J1", 3*paging.KB, 2)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should evict the longest-resident page first", func() {
			_, err := m.Access(0, 0, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())
			_, err = m.Access(1, 0, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())

			result, err := m.Access(2, 0, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedPage).To(Equal(0), "page 0 entered first")

			result, err = m.Access(0, 0, paging.OpAdd)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedPage).To(Equal(1))

			expectConsistent(m)
		})
	})

	Context("creating a second job", func() {
		BeforeEach(func() {
			_, err := m.CreateJob("J1", 4*paging.KB, 4)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 4; i++ {
				_, err = m.Access(i, 0, paging.OpAdd)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("should reclaim all frames of the previous job", func() {
			job, err := m.CreateJob("J2", 2*paging.KB, 64)

			Expect(err).NotTo(HaveOccurred())
			Expect(job.FrameCount).To(Equal(64))

			for _, f := range m.Frames() {
				Expect(f.Mapped).To(BeFalse())
			}
		})

		It("should discard the previous page table", func() {
			_, err := m.CreateJob("J2", 1*paging.KB, 1)
			Expect(err).NotTo(HaveOccurred())

			Expect(m.PageTable()).To(HaveLen(1))

			job, ok := m.CurrentJob()
			Expect(ok).To(BeTrue())
			Expect(job.ID).To(Equal("J2"))
		})
	})
})
