package stream

import (
	"io"
)

type chunk struct {
	data []byte
	err  error
}

// chunkReader keeps exactly one Read outstanding on the body and hands results over a channel,
// so the consumer can bound every pull with a timer.
type chunkReader struct {
	body   io.Reader
	size   int
	chunks chan chunk
	done   chan struct{}
}

func newChunkReader(body io.Reader, size int) *chunkReader {
	return &chunkReader{
		body:   body,
		size:   size,
		chunks: make(chan chunk),
		done:   make(chan struct{}),
	}
}

func (r *chunkReader) run() {
	for {
		buf := make([]byte, r.size)
		n, err := r.body.Read(buf)
		if n > 0 && !r.send(chunk{data: buf[:n]}) {
			return
		}
		if err != nil {
			r.send(chunk{err: err})
			return
		}
	}
}

func (r *chunkReader) send(c chunk) bool {
	select {
	case r.chunks <- c:
		return true
	case <-r.done:
		return false
	}
}

// stop releases the goroutine once it is no longer blocked in Read. Closing the body unblocks Read.
func (r *chunkReader) stop() {
	close(r.done)
}
