package rasterview

import (
	"sync"
)

// Pools for the compressed bytes of strips and tiles. Compressed chunks are
// decoded as soon as they are read, so their buffers are recycled
// immediately.

const (
	smallBufferSize = 64 * 1024       // 64KB, typical compressed 256x256 tile
	largeBufferSize = 1024 * 1024     // 1MB, 512x512 tiles or strips
	maxPooledSize   = 4 * 1024 * 1024 // larger chunks are allocated directly
)

var (
	smallPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, smallBufferSize)
			return &buf
		},
	}
	largePool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, largeBufferSize)
			return &buf
		},
	}
	xlargePool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, maxPooledSize)
			return &buf
		},
	}
)

// getChunkBuffer returns a slice of exactly size bytes. Return it with
// putChunkBuffer once its contents are no longer referenced.
func getChunkBuffer(size int) []byte {
	switch {
	case size <= smallBufferSize:
		return (*smallPool.Get().(*[]byte))[:size]
	case size <= largeBufferSize:
		return (*largePool.Get().(*[]byte))[:size]
	case size <= maxPooledSize:
		return (*xlargePool.Get().(*[]byte))[:size]
	}
	return make([]byte, size)
}

// putChunkBuffer recycles a buffer from getChunkBuffer. Buffers of other
// capacities are dropped.
func putChunkBuffer(buf []byte) {
	buf = buf[:cap(buf)]
	switch cap(buf) {
	case smallBufferSize:
		smallPool.Put(&buf)
	case largeBufferSize:
		largePool.Put(&buf)
	case maxPooledSize:
		xlargePool.Put(&buf)
	}
}
