package replacement

// A Builder can build FIFO page replacement simulators.
type Builder struct {
	numFrames int
}

// MakeBuilder creates a builder with 3 frames.
func MakeBuilder() Builder {
	return Builder{
		numFrames: 3,
	}
}

// WithNumFrames sets the number of frames that can hold pages.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// Build creates a simulator with no resident page.
func (b Builder) Build(name string) *FIFO {
	if b.numFrames <= 0 {
		panic("there must be at least one frame")
	}

	f := &FIFO{
		name:      name,
		numFrames: b.numFrames,
	}
	f.Reset()

	return f
}
