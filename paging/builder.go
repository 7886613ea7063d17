package paging

// KB is the unit in which the builder sizes are expressed.
const KB = 1024

// Builder can build paged memory engines.
type Builder struct {
	memSizeKB    uint64
	pageSizeKB   uint64
	maxJobSizeKB uint64
	tagGen       TagGenerator
}

// MakeBuilder returns a new Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		memSizeKB:    64,
		pageSizeKB:   1,
		maxJobSizeKB: 64,
	}
}

// WithMemSize sets the physical memory size, in KB.
func (b Builder) WithMemSize(kb uint64) Builder {
	b.memSizeKB = kb
	return b
}

// WithPageSize sets the page size, in KB.
func (b Builder) WithPageSize(kb uint64) Builder {
	b.pageSizeKB = kb
	return b
}

// WithMaxJobSize sets the largest job size the engine accepts, in KB.
func (b Builder) WithMaxJobSize(kb uint64) Builder {
	b.maxJobSizeKB = kb
	return b
}

// WithTagGenerator sets the generator of the disk-location tags.
func (b Builder) WithTagGenerator(gen TagGenerator) Builder {
	b.tagGen = gen
	return b
}

// Build builds a new PagedMemory with all frames empty and no current job.
func (b Builder) Build(name string) *PagedMemory {
	if b.pageSizeKB == 0 {
		panic("page size must be positive")
	}

	if b.memSizeKB == 0 || b.memSizeKB%b.pageSizeKB != 0 {
		panic("memory size must be a positive multiple of the page size")
	}

	m := &PagedMemory{
		name:        name,
		memSize:     b.memSizeKB * KB,
		pageSize:    b.pageSizeKB * KB,
		maxJobSize:  b.maxJobSizeKB * KB,
		totalFrames: int(b.memSizeKB / b.pageSizeKB),
		tagGen:      b.tagGen,
	}

	if m.tagGen == nil {
		m.tagGen = NewTagGenerator()
	}

	m.frames = make([]int, m.totalFrames)
	for i := range m.frames {
		m.frames[i] = emptyFrame
	}

	return m
}
