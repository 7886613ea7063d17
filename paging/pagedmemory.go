// Package paging models demand-paged virtual memory for a single resident
// job, with a flat page table, page faults, and FIFO page replacement.
package paging

import (
	"errors"
	"fmt"

	"github.com/sarchlab/memsim/hooking"
)

// Job-creation and access failures. All of them leave the engine state
// unchanged.
var (
	ErrJobTooLarge        = errors.New("job size exceeds the maximum job size")
	ErrBadFrameCount      = errors.New("frame count must be positive")
	ErrInsufficientFrames = errors.New("requested more frames than the memory has")
	ErrOutOfFrames        = errors.New("not enough empty frames")
	ErrNoCurrentJob       = errors.New("no job has been created")
	ErrPageOutOfRange     = errors.New("page number out of range")
	ErrOffsetOutOfRange   = errors.New("offset out of range")
)

// HookPosJobCreate is the position of hooks invoked after a CreateJob call.
var HookPosJobCreate = &hooking.HookPos{Name: "JobCreate"}

// HookPosAccess is the position of hooks invoked after an Access call.
var HookPosAccess = &hooking.HookPos{Name: "Access"}

// emptyFrame marks a frame table slot that holds no page.
const emptyFrame = -1

// A Job describes the single job that is currently resident.
type Job struct {
	ID         string
	Size       uint64
	PageCount  int
	FrameCount int
}

// A JobOp describes one CreateJob call. It is the Item of the HookCtx fired
// at HookPosJobCreate.
type JobOp struct {
	Job Job
	Err error
}

// An AccessOp describes one Access call. It is the Item of the HookCtx fired
// at HookPosAccess.
type AccessOp struct {
	PageNo int
	Offset uint64
	Op     Op
	Result AccessResult
	Err    error
}

// An AccessResult reports the outcome of a successful memory access.
type AccessResult struct {
	PhysAddr    uint64
	PageFault   bool
	Evicted     bool
	EvictedPage int
}

// A PagedMemory owns a fixed array of physical frames and the page table of
// the current job.
type PagedMemory struct {
	hooking.HookableBase

	name        string
	memSize     uint64
	pageSize    uint64
	maxJobSize  uint64
	totalFrames int

	frames          []int
	job             *Job
	pageTable       map[int]*Page
	allocatedFrames []int
	fifoQueue       []int

	tagGen TagGenerator
}

// Name returns the name of the engine.
func (m *PagedMemory) Name() string {
	return m.name
}

// PageSize returns the page size in bytes.
func (m *PagedMemory) PageSize() uint64 {
	return m.pageSize
}

// TotalFrames returns the number of physical frames.
func (m *PagedMemory) TotalFrames() int {
	return m.totalFrames
}

// CurrentJob returns the job that is currently resident, if any.
func (m *PagedMemory) CurrentJob() (Job, bool) {
	if m.job == nil {
		return Job{}, false
	}

	return *m.job, true
}

// CreateJob makes a new job the current one, discarding the previous job's
// page table and frame assignments. The whole frame table is reset to empty
// first, since only one job is ever resident. jobSize is in bytes.
func (m *PagedMemory) CreateJob(
	jobID string,
	jobSize uint64,
	frameCount int,
) (Job, error) {
	if jobSize > m.maxJobSize {
		return Job{}, m.failJobCreate(jobID, jobSize, frameCount,
			fmt.Errorf("%w: %d > %d", ErrJobTooLarge, jobSize, m.maxJobSize))
	}

	if frameCount < 1 {
		return Job{}, m.failJobCreate(jobID, jobSize, frameCount,
			fmt.Errorf("%w: %d", ErrBadFrameCount, frameCount))
	}

	if frameCount > m.totalFrames {
		return Job{}, m.failJobCreate(jobID, jobSize, frameCount,
			fmt.Errorf("%w: %d > %d",
				ErrInsufficientFrames, frameCount, m.totalFrames))
	}

	m.resetFrames()

	emptyFrames := make([]int, 0, m.totalFrames)
	for i, page := range m.frames {
		if page == emptyFrame {
			emptyFrames = append(emptyFrames, i)
		}
	}

	// After the reset above every frame is empty, so this can only fire if
	// the reset semantics ever change.
	if len(emptyFrames) < frameCount {
		return Job{}, m.failJobCreate(jobID, jobSize, frameCount,
			fmt.Errorf("%w: %d requested, %d empty",
				ErrOutOfFrames, frameCount, len(emptyFrames)))
	}

	pageCount := int((jobSize + m.pageSize - 1) / m.pageSize)

	m.pageTable = make(map[int]*Page, pageCount)
	for i := 0; i < pageCount; i++ {
		m.pageTable[i] = &Page{
			PageNo:  i,
			FrameNo: emptyFrame,
			DiskTag: m.tagGen.Generate(),
		}
	}

	m.allocatedFrames = append([]int{}, emptyFrames[:frameCount]...)

	job := Job{
		ID:         jobID,
		Size:       jobSize,
		PageCount:  pageCount,
		FrameCount: frameCount,
	}
	m.job = &job

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosJobCreate,
		Item:   JobOp{Job: job},
	})

	return job, nil
}

func (m *PagedMemory) failJobCreate(
	jobID string,
	jobSize uint64,
	frameCount int,
	err error,
) error {
	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosJobCreate,
		Item: JobOp{
			Job: Job{ID: jobID, Size: jobSize, FrameCount: frameCount},
			Err: err,
		},
	})

	return err
}

func (m *PagedMemory) resetFrames() {
	for i := range m.frames {
		m.frames[i] = emptyFrame
	}

	m.fifoQueue = nil
	m.allocatedFrames = nil
	m.pageTable = nil
	m.job = nil
}

// Access executes one memory access of the current job. A non-resident page
// triggers a page fault, filling an empty allocated frame when one exists and
// evicting the longest-resident page otherwise. Store-like operations mark
// the page dirty.
func (m *PagedMemory) Access(
	pageNo int,
	offset uint64,
	op Op,
) (AccessResult, error) {
	if m.job == nil {
		return AccessResult{}, m.failAccess(pageNo, offset, op,
			ErrNoCurrentJob)
	}

	if offset >= m.pageSize {
		return AccessResult{}, m.failAccess(pageNo, offset, op,
			fmt.Errorf("%w: %d >= %d", ErrOffsetOutOfRange, offset, m.pageSize))
	}

	page, found := m.pageTable[pageNo]
	if !found {
		return AccessResult{}, m.failAccess(pageNo, offset, op,
			fmt.Errorf("%w: %d", ErrPageOutOfRange, pageNo))
	}

	result := AccessResult{}

	if !page.Resident {
		if len(m.allocatedFrames) == 0 {
			return AccessResult{}, m.failAccess(pageNo, offset, op,
				fmt.Errorf("%w: job holds no frames", ErrOutOfFrames))
		}

		result.PageFault = true
		result.Evicted, result.EvictedPage = m.handlePageFault(page)
	}

	if op.StoreLike() {
		page.Dirty = true
	}

	result.PhysAddr = uint64(page.FrameNo)*m.pageSize + offset

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosAccess,
		Item: AccessOp{
			PageNo: pageNo, Offset: offset, Op: op, Result: result,
		},
	})

	return result, nil
}

func (m *PagedMemory) failAccess(
	pageNo int,
	offset uint64,
	op Op,
	err error,
) error {
	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosAccess,
		Item:   AccessOp{PageNo: pageNo, Offset: offset, Op: op, Err: err},
	})

	return err
}

// handlePageFault brings the page into a frame. It returns the evicted page
// number when FIFO replacement had to run.
func (m *PagedMemory) handlePageFault(page *Page) (evicted bool, evictedPage int) {
	for _, frameNo := range m.allocatedFrames {
		if m.frames[frameNo] == emptyFrame {
			m.mapPage(page, frameNo)
			return false, 0
		}
	}

	if len(m.fifoQueue) == 0 {
		panic("page fault with no allocated frames")
	}

	victimFrame := m.fifoQueue[0]
	m.fifoQueue = m.fifoQueue[1:]

	victimPageNo := m.frames[victimFrame]
	if victimPageNo != emptyFrame {
		victim := m.pageTable[victimPageNo]
		victim.Resident = false
		victim.FrameNo = emptyFrame

		evicted = true
		evictedPage = victimPageNo
	}

	m.mapPage(page, victimFrame)

	return evicted, evictedPage
}

func (m *PagedMemory) mapPage(page *Page, frameNo int) {
	m.frames[frameNo] = page.PageNo
	page.Resident = true
	page.FrameNo = frameNo
	m.fifoQueue = append(m.fifoQueue, frameNo)
}

// PageTable returns a snapshot of the current job's page table, ordered by
// page number. It returns nil when no job is resident.
func (m *PagedMemory) PageTable() []Page {
	if m.job == nil {
		return nil
	}

	pages := make([]Page, m.job.PageCount)
	for i := 0; i < m.job.PageCount; i++ {
		pages[i] = *m.pageTable[i]
	}

	return pages
}

// Frames returns a snapshot of the frame table.
func (m *PagedMemory) Frames() []Frame {
	frames := make([]Frame, m.totalFrames)
	for i := 0; i < m.totalFrames; i++ {
		frames[i] = Frame{
			Index:  i,
			Mapped: m.frames[i] != emptyFrame,
			PageNo: m.frames[i],
		}

		for _, allocated := range m.allocatedFrames {
			if allocated == i {
				frames[i].Allocated = true
				break
			}
		}
	}

	return frames
}
