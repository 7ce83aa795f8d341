package audio

// Chunk is one fixed-duration slice of a waveform. Begin and End are second
// offsets into the source asset; the final chunk is zero-padded so every
// chunk carries exactly the same number of samples.
type Chunk struct {
	Samples []float32
	Begin   int
	End     int
}

// Chunker splits a waveform into fixed-duration chunks. It is lazy and
// restartable: Next yields chunks one at a time and Reset rewinds to the
// start.
type Chunker struct {
	samples      []float32
	sampleRate   int
	chunkSeconds int
	offset       int
}

// NewChunker creates a chunker over samples at sampleRate Hz producing
// chunkSeconds-long chunks.
func NewChunker(samples []float32, sampleRate, chunkSeconds int) *Chunker {
	return &Chunker{
		samples:      samples,
		sampleRate:   sampleRate,
		chunkSeconds: chunkSeconds,
	}
}

// Count returns the total number of chunks the waveform produces.
func (c *Chunker) Count() int {
	size := c.chunkSize()
	if size == 0 || len(c.samples) == 0 {
		return 0
	}
	return (len(c.samples) + size - 1) / size
}

// Next returns the next chunk, or false when the waveform is exhausted.
func (c *Chunker) Next() (Chunk, bool) {
	size := c.chunkSize()
	if size == 0 || c.offset >= len(c.samples) {
		return Chunk{}, false
	}

	begin := c.offset / c.sampleRate
	out := make([]float32, size)
	copy(out, c.samples[c.offset:min(c.offset+size, len(c.samples))])
	c.offset += size

	return Chunk{
		Samples: out,
		Begin:   begin,
		End:     begin + c.chunkSeconds,
	}, true
}

// Reset rewinds the chunker to the first chunk.
func (c *Chunker) Reset() {
	c.offset = 0
}

func (c *Chunker) chunkSize() int {
	return c.sampleRate * c.chunkSeconds
}
