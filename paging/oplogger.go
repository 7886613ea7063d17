package paging

import (
	"log"
	"strconv"

	"github.com/sarchlab/memsim/hooking"
)

// OpLogger is a hook that prints one line per paging operation.
type OpLogger struct {
	hooking.LogHookBase
}

// NewOpLogger returns an OpLogger that writes into the given logger.
func NewOpLogger(logger *log.Logger) *OpLogger {
	l := new(OpLogger)
	l.Logger = logger

	return l
}

// Func writes the operation information into the logger.
func (l *OpLogger) Func(ctx hooking.HookCtx) {
	name := ctx.Domain.(*PagedMemory).Name()

	switch item := ctx.Item.(type) {
	case JobOp:
		if item.Err != nil {
			l.Printf("%s, job %s: %s", name, item.Job.ID, item.Err)
			return
		}

		l.Printf("%s, job %s: %d pages, %d frames",
			name, item.Job.ID, item.Job.PageCount, item.Job.FrameCount)
	case AccessOp:
		if item.Err != nil {
			l.Printf("%s, access %s %d %d: %s",
				name, item.Op, item.PageNo, item.Offset, item.Err)
			return
		}

		detail := "no fault"
		if item.Result.PageFault {
			detail = "page fault"
			if item.Result.Evicted {
				detail = "page fault, evicted page " +
					strconv.Itoa(item.Result.EvictedPage)
			}
		}

		l.Printf("%s, access %s %d %d: physical address %d, %s",
			name, item.Op, item.PageNo, item.Offset,
			item.Result.PhysAddr, detail)
	}
}
