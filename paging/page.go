package paging

import (
	"fmt"

	"github.com/rs/xid"
)

// A Page is an entry in the page table, maintaining the information about
// whether and where a page of the current job is resident in memory.
type Page struct {
	PageNo   int
	Resident bool
	FrameNo  int
	Dirty    bool
	DiskTag  string
}

// A Frame is one slot of the frame table snapshot.
type Frame struct {
	Index     int
	Mapped    bool
	PageNo    int
	Allocated bool
}

// An Op classifies one instruction of the current job. Only OpStore is
// store-like and marks the accessed page dirty.
type Op int

// The instruction set of the simulated job.
const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpLoad
	OpStore
)

// StoreLike returns true for operations that write to the accessed page.
func (o Op) StoreLike() bool {
	return o == OpStore
}

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpLoad:
		return "load"
	case OpStore:
		return "save"
	default:
		panic(fmt.Sprintf("op %d not supported", int(o)))
	}
}

// ParseOp converts the external operation selector string to an Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "+":
		return OpAdd, nil
	case "-":
		return OpSub, nil
	case "*", "x":
		return OpMul, nil
	case "/":
		return OpDiv, nil
	case "load":
		return OpLoad, nil
	case "save", "store":
		return OpStore, nil
	default:
		return OpAdd, fmt.Errorf("invalid operation %q", s)
	}
}

// TagGenerator produces the opaque disk-location tags attached to page table
// entries. The tags have no on-disk semantics.
type TagGenerator interface {
	Generate() string
}

// NewTagGenerator returns the default TagGenerator.
func NewTagGenerator() TagGenerator {
	return xidTagGenerator{}
}

type xidTagGenerator struct{}

func (xidTagGenerator) Generate() string {
	return xid.New().String()
}
