package pgproto3

import (
	"io"
	"sync"
)

type bigBufPool struct {
	pool     sync.Pool
	byteSize int
}

var bigBufPools []*bigBufPool

func init() {
	KiB := 1024
	bigBufSizes := []int{64 * KiB, 256 * KiB, 1024 * KiB, 4096 * KiB}
	bigBufPools = make([]*bigBufPool, len(bigBufSizes))

	for i := range bigBufPools {
		byteSize := bigBufSizes[i]
		bigBufPools[i] = &bigBufPool{
			pool:     sync.Pool{New: func() any { return make([]byte, byteSize) }},
			byteSize: byteSize,
		}
	}
}

func getBigBuf(size int) []byte {
	for _, p := range bigBufPools {
		if size < p.byteSize {
			return p.pool.Get().([]byte)
		}
	}
	return make([]byte, size)
}

func releaseBigBuf(buf []byte) {
	for _, p := range bigBufPools {
		if len(buf) == p.byteSize {
			p.pool.Put(buf)
			return
		}
	}
}

// chunkReader minimizes IO reads and memory allocations by reading as
// much as fits in the current buffer on each underlying Read,
// regardless of how much was actually requested. Memory returned by
// Next is only valid until the next call to Next.
type chunkReader struct {
	r io.Reader

	buf    []byte
	rp, wp int

	ownBuf []byte
}

// newChunkReader creates a chunkReader for r with an internal buffer of
// bufSize bytes. If bufSize <= 0, it defaults to 8192 -- matching
// PostgreSQL's own internal send buffer size.
func newChunkReader(r io.Reader, bufSize int) *chunkReader {
	if bufSize <= 0 {
		bufSize = 8192
	}

	buf := make([]byte, bufSize)

	return &chunkReader{
		r:      r,
		buf:    buf,
		ownBuf: buf,
	}
}

// Next returns the next n bytes. The returned slice is only valid until
// the next call to Next.
func (r *chunkReader) Next(n int) (buf []byte, err error) {
	if r.rp == r.wp {
		if len(r.buf) != len(r.ownBuf) {
			releaseBigBuf(r.buf)
			r.buf = r.ownBuf
		}
		r.rp = 0
		r.wp = 0
	}

	if (r.wp - r.rp) >= n {
		buf = r.buf[r.rp : r.rp+n : r.rp+n]
		r.rp += n
		return buf, nil
	}

	if len(r.buf) < n {
		bigBuf := getBigBuf(n)
		r.wp = copy(bigBuf, r.buf[r.rp:r.wp])
		r.rp = 0
		r.buf = bigBuf
	}

	minReadCount := n - (r.wp - r.rp)
	if (len(r.buf) - r.wp) < minReadCount {
		r.wp = copy(r.buf, r.buf[r.rp:r.wp])
		r.rp = 0
	}

	readBytesCount, err := io.ReadAtLeast(r.r, r.buf[r.wp:], minReadCount)
	r.wp += readBytesCount
	if err != nil {
		return nil, err
	}

	buf = r.buf[r.rp : r.rp+n : r.rp+n]
	r.rp += n
	return buf, nil
}

// Buffered reports how many already-read bytes remain unconsumed.
func (r *chunkReader) Buffered() int {
	return r.wp - r.rp
}
