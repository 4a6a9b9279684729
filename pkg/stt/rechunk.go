package stt

// Rechunker buffers arbitrary-sized audio deliveries and yields slices of
// exactly chunkSize bytes, carrying any remainder forward. The provider
// rejects chunks shorter than 50ms, so inbound frames cannot simply be
// forwarded as-is.
type Rechunker struct {
	chunkSize int
	buf       []byte
}

// NewRechunker creates a rechunker with the given chunk size.
// A non-positive size falls back to MinChunkSize; the provider rejects
// chunks longer than a second, so sizes above MaxChunkSize are capped.
func NewRechunker(chunkSize int) *Rechunker {
	if chunkSize <= 0 {
		chunkSize = MinChunkSize
	}
	if chunkSize > MaxChunkSize {
		chunkSize = MaxChunkSize
	}
	return &Rechunker{chunkSize: chunkSize}
}

// Add appends a delivery to the buffer and returns every complete chunk
// now available, in order. Each returned slice is an independent copy.
func (r *Rechunker) Add(delivery []byte) [][]byte {
	r.buf = append(r.buf, delivery...)

	var chunks [][]byte
	for len(r.buf) >= r.chunkSize {
		chunk := make([]byte, r.chunkSize)
		copy(chunk, r.buf[:r.chunkSize])
		chunks = append(chunks, chunk)
		r.buf = r.buf[r.chunkSize:]
	}
	return chunks
}

// Flush returns the buffered remainder, if any, and resets the buffer.
// Called on shutdown so the final partial chunk is not dropped.
func (r *Rechunker) Flush() []byte {
	if len(r.buf) == 0 {
		return nil
	}
	rest := make([]byte, len(r.buf))
	copy(rest, r.buf)
	r.buf = r.buf[:0]
	return rest
}

// Buffered returns the number of bytes currently carried forward.
func (r *Rechunker) Buffered() int {
	return len(r.buf)
}
