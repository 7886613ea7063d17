package partition

import (
	"log"

	"github.com/sarchlab/memsim/hooking"
)

// OpLogger is a hook that prints one line per allocator operation.
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
	op, ok := ctx.Item.(AllocOp)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosAlloc:
		if op.Err != nil {
			l.Printf("%s, alloc %s: %s",
				ctx.Domain.(*Allocator).Name(), op.PID, op.Err)
			return
		}

		l.Printf("%s, alloc %s: %d units at %d (%s)",
			ctx.Domain.(*Allocator).Name(),
			op.PID, op.Block.Size, op.Block.Start, op.Algorithm)
	case HookPosFree:
		if op.Err != nil {
			l.Printf("%s, free %s: %s",
				ctx.Domain.(*Allocator).Name(), op.PID, op.Err)
			return
		}

		l.Printf("%s, free %s: %d units at %d",
			ctx.Domain.(*Allocator).Name(),
			op.PID, op.Block.Size, op.Block.Start)
	}
}
