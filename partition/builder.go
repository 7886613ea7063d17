package partition

// Builder can build partition allocators.
type Builder struct {
	capacity uint64
}

// MakeBuilder returns a new Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		capacity: 1024,
	}
}

// WithCapacity sets the total size of the memory to manage.
func (b Builder) WithCapacity(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// Build builds a new Allocator. The whole memory starts as one free block.
func (b Builder) Build(name string) *Allocator {
	if b.capacity == 0 {
		panic("allocator capacity must be positive")
	}

	a := &Allocator{
		name:      name,
		capacity:  b.capacity,
		blocks:    []Block{{Start: 0, Size: b.capacity}},
		processes: make(map[string]uint64),
	}

	return a
}
