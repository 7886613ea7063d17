package datarecording

import (
	"time"

	"github.com/sarchlab/memsim/hooking"
	"github.com/sarchlab/memsim/paging"
	"github.com/sarchlab/memsim/partition"
)

// PartitionOpEntry is one recorded partition allocator operation.
type PartitionOpEntry struct {
	Time      string
	Engine    string
	Kind      string
	PID       string
	Size      uint64
	Start     uint64
	Algorithm string
	OK        bool
	Detail    string
}

// PagingOpEntry is one recorded paged memory operation.
type PagingOpEntry struct {
	Time     string
	Engine   string
	Kind     string
	JobID    string
	PageNo   int
	Offset   uint64
	Op       string
	PhysAddr uint64
	Fault    bool
	Evicted  int
	OK       bool
	Detail   string
}

// Table names used by the OpRecorder.
const (
	PartitionOpTable = "partition_ops"
	PagingOpTable    = "paging_ops"
)

// An OpRecorder is a hook that persists every partition and paging operation
// through a DataRecorder. Attach it to engines with AcceptHook.
type OpRecorder struct {
	recorder DataRecorder
}

// NewOpRecorder creates the operation tables and returns the hook.
func NewOpRecorder(recorder DataRecorder) *OpRecorder {
	recorder.CreateTable(PartitionOpTable, PartitionOpEntry{})
	recorder.CreateTable(PagingOpTable, PagingOpEntry{})

	return &OpRecorder{recorder: recorder}
}

// Func records the operation carried by the hook context.
func (r *OpRecorder) Func(ctx hooking.HookCtx) {
	switch item := ctx.Item.(type) {
	case partition.AllocOp:
		r.recordPartitionOp(ctx, item)
	case paging.JobOp:
		r.recordJobOp(ctx, item)
	case paging.AccessOp:
		r.recordAccessOp(ctx, item)
	}
}

func (r *OpRecorder) recordPartitionOp(
	ctx hooking.HookCtx,
	op partition.AllocOp,
) {
	entry := PartitionOpEntry{
		Time:   time.Now().Format(time.RFC3339Nano),
		Engine: ctx.Domain.(*partition.Allocator).Name(),
		Kind:   ctx.Pos.Name,
		PID:    op.PID,
		Size:   op.Size,
		Start:  op.Block.Start,
		OK:     op.Err == nil,
	}

	if ctx.Pos == partition.HookPosAlloc {
		entry.Algorithm = op.Algorithm.String()
	}

	if op.Err != nil {
		entry.Detail = op.Err.Error()
	}

	r.recorder.InsertData(PartitionOpTable, entry)
}

func (r *OpRecorder) recordJobOp(ctx hooking.HookCtx, op paging.JobOp) {
	entry := PagingOpEntry{
		Time:   time.Now().Format(time.RFC3339Nano),
		Engine: ctx.Domain.(*paging.PagedMemory).Name(),
		Kind:   ctx.Pos.Name,
		JobID:  op.Job.ID,
		OK:     op.Err == nil,
	}

	if op.Err != nil {
		entry.Detail = op.Err.Error()
	}

	r.recorder.InsertData(PagingOpTable, entry)
}

func (r *OpRecorder) recordAccessOp(ctx hooking.HookCtx, op paging.AccessOp) {
	entry := PagingOpEntry{
		Time:     time.Now().Format(time.RFC3339Nano),
		Engine:   ctx.Domain.(*paging.PagedMemory).Name(),
		Kind:     ctx.Pos.Name,
		PageNo:   op.PageNo,
		Offset:   op.Offset,
		Op:       op.Op.String(),
		PhysAddr: op.Result.PhysAddr,
		Fault:    op.Result.PageFault,
		Evicted:  -1,
		OK:       op.Err == nil,
	}

	if op.Result.Evicted {
		entry.Evicted = op.Result.EvictedPage
	}

	if op.Err != nil {
		entry.Detail = op.Err.Error()
	}

	r.recorder.InsertData(PagingOpTable, entry)
}
