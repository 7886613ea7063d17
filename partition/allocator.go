// Package partition models contiguous dynamic partition allocation with
// first-fit, best-fit, and worst-fit placement and free-block coalescing.
package partition

import (
	"errors"
	"fmt"

	"github.com/sarchlab/memsim/hooking"
)

// Allocation failures. All of them leave the allocator state unchanged.
var (
	ErrZeroSize         = errors.New("allocation size must be positive")
	ErrDuplicateProcess = errors.New("process already holds an allocation")
	ErrOutOfMemory      = errors.New("no free block large enough")
	ErrUnknownProcess   = errors.New("process has no allocation")
)

// HookPosAlloc is the position of hooks that are invoked after an Allocate
// call, whether it succeeded or not.
var HookPosAlloc = &hooking.HookPos{Name: "Alloc"}

// HookPosFree is the position of hooks that are invoked after a Deallocate
// call, whether it succeeded or not.
var HookPosFree = &hooking.HookPos{Name: "Free"}

// An Algorithm selects the free block that serves an allocation request.
type Algorithm int

// Placement policies among the free blocks that are large enough. Best-fit
// and worst-fit ties resolve to the candidate at the lowest address.
const (
	FirstFit Algorithm = iota
	BestFit
	WorstFit
)

func (a Algorithm) String() string {
	switch a {
	case FirstFit:
		return "first_fit"
	case BestFit:
		return "best_fit"
	case WorstFit:
		return "worst_fit"
	default:
		panic(fmt.Sprintf("algorithm %d not supported", int(a)))
	}
}

// ParseAlgorithm converts the external selector string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "first_fit":
		return FirstFit, nil
	case "best_fit":
		return BestFit, nil
	case "worst_fit":
		return WorstFit, nil
	default:
		return FirstFit, fmt.Errorf("invalid algorithm %q", s)
	}
}

// A Block is a contiguous region of the managed memory. Blocks cover the
// whole memory with no gaps and no overlaps.
type Block struct {
	Start     uint64
	Size      uint64
	Allocated bool
	PID       string
}

// End returns the address of the last unit covered by the block.
func (b Block) End() uint64 {
	return b.Start + b.Size - 1
}

// An AllocOp describes one Allocate or Deallocate call. It is the Item of the
// HookCtx fired at HookPosAlloc and HookPosFree.
type AllocOp struct {
	PID       string
	Size      uint64
	Algorithm Algorithm
	Block     Block
	Err       error
}

// An Allocator owns a linear memory space and carves variable-sized
// partitions out of it on demand.
type Allocator struct {
	hooking.HookableBase

	name      string
	capacity  uint64
	blocks    []Block
	processes map[string]uint64
}

// Name returns the name of the allocator.
func (a *Allocator) Name() string {
	return a.name
}

// Capacity returns the total size of the managed memory.
func (a *Allocator) Capacity() uint64 {
	return a.capacity
}

// Allocate reserves size units for the process pid, placing the partition
// according to the given algorithm. It returns the allocated block.
func (a *Allocator) Allocate(
	pid string,
	size uint64,
	algorithm Algorithm,
) (Block, error) {
	if size == 0 {
		err := fmt.Errorf("%w: process %s", ErrZeroSize, pid)
		a.invokeAllocHook(HookPosAlloc, AllocOp{
			PID: pid, Size: size, Algorithm: algorithm, Err: err,
		})

		return Block{}, err
	}

	if _, exists := a.processes[pid]; exists {
		err := fmt.Errorf("%w: %s", ErrDuplicateProcess, pid)
		a.invokeAllocHook(HookPosAlloc, AllocOp{
			PID: pid, Size: size, Algorithm: algorithm, Err: err,
		})

		return Block{}, err
	}

	index := a.findBlock(size, algorithm)
	if index < 0 {
		err := fmt.Errorf("%w: %d units for process %s",
			ErrOutOfMemory, size, pid)
		a.invokeAllocHook(HookPosAlloc, AllocOp{
			PID: pid, Size: size, Algorithm: algorithm, Err: err,
		})

		return Block{}, err
	}

	allocated := a.splitBlock(index, pid, size)
	a.processes[pid] = size

	a.invokeAllocHook(HookPosAlloc, AllocOp{
		PID: pid, Size: size, Algorithm: algorithm, Block: allocated,
	})

	return allocated, nil
}

// findBlock returns the index of the free block that serves the request, or
// -1 when no free block is large enough.
func (a *Allocator) findBlock(size uint64, algorithm Algorithm) int {
	switch algorithm {
	case FirstFit:
		for i, block := range a.blocks {
			if !block.Allocated && block.Size >= size {
				return i
			}
		}

		return -1
	case BestFit:
		best := -1
		for i, block := range a.blocks {
			if block.Allocated || block.Size < size {
				continue
			}

			if best < 0 || block.Size-size < a.blocks[best].Size-size {
				best = i
			}
		}

		return best
	case WorstFit:
		worst := -1
		for i, block := range a.blocks {
			if block.Allocated || block.Size < size {
				continue
			}

			if worst < 0 || block.Size-size > a.blocks[worst].Size-size {
				worst = i
			}
		}

		return worst
	default:
		panic(fmt.Sprintf("algorithm %d not supported", int(algorithm)))
	}
}

// splitBlock replaces the free block at index with an allocated block of
// exactly size units, followed by a free block holding the remainder when
// the original block was larger.
func (a *Allocator) splitBlock(index int, pid string, size uint64) Block {
	original := a.blocks[index]

	allocated := Block{
		Start:     original.Start,
		Size:      size,
		Allocated: true,
		PID:       pid,
	}

	if original.Size > size {
		remainder := Block{
			Start: original.Start + size,
			Size:  original.Size - size,
		}
		a.blocks = append(a.blocks, Block{})
		copy(a.blocks[index+1:], a.blocks[index:])
		a.blocks[index+1] = remainder
	}

	a.blocks[index] = allocated

	return allocated
}

// Deallocate releases the partition held by the process pid and merges the
// freed region with any adjacent free blocks. It returns the freed extent.
func (a *Allocator) Deallocate(pid string) (Block, error) {
	if _, exists := a.processes[pid]; !exists {
		err := fmt.Errorf("%w: %s", ErrUnknownProcess, pid)
		a.invokeAllocHook(HookPosFree, AllocOp{PID: pid, Err: err})

		return Block{}, err
	}

	index := -1
	for i, block := range a.blocks {
		if block.Allocated && block.PID == pid {
			index = i
			break
		}
	}

	if index < 0 {
		panic("process table and block list out of sync")
	}

	freed := Block{
		Start: a.blocks[index].Start,
		Size:  a.blocks[index].Size,
	}
	a.blocks[index] = freed

	a.mergeAdjacentBlocks()
	delete(a.processes, pid)

	a.invokeAllocHook(HookPosFree, AllocOp{
		PID: pid, Size: freed.Size, Block: freed,
	})

	return freed, nil
}

// mergeAdjacentBlocks collapses every chain of adjacent free blocks into a
// single block in one left-to-right sweep.
func (a *Allocator) mergeAdjacentBlocks() {
	i := 0
	for i < len(a.blocks)-1 {
		current := a.blocks[i]
		next := a.blocks[i+1]

		if !current.Allocated && !next.Allocated {
			a.blocks[i].Size += next.Size
			a.blocks = append(a.blocks[:i+1], a.blocks[i+2:]...)
		} else {
			i++
		}
	}
}

// Blocks returns a snapshot of the block list, ordered by start address.
func (a *Allocator) Blocks() []Block {
	blocks := make([]Block, len(a.blocks))
	copy(blocks, a.blocks)

	return blocks
}

func (a *Allocator) invokeAllocHook(pos *hooking.HookPos, op AllocOp) {
	a.InvokeHook(hooking.HookCtx{
		Domain: a,
		Pos:    pos,
		Item:   op,
	})
}
