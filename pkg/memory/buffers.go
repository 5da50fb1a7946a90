// Package memory pools the read buffers used while scanning log files, so a
// tree run does not allocate fresh buffers for every file.
package memory

import (
	"sync"
	"sync/atomic"
)

const (
	ScanBufferSize  = 65536 // initial bufio.Scanner buffer
	SniffBufferSize = 512   // text detection sample

	// Maximum buffer size to retain in pool (prevents memory bloat)
	MaxRetainedBufferSize = 1048576 // 1MB
)

// BufferSize represents different buffer size categories
type BufferSize int

const (
	ScanBuffer BufferSize = iota
	SniffBuffer
)

// bufferWrapper wraps a byte slice for sync.Pool compatibility
type bufferWrapper struct {
	b []byte
}

// BufferPool manages reusable byte slices for log reads
type BufferPool struct {
	scan  sync.Pool
	sniff sync.Pool

	scanGets    int64
	sniffGets   int64
	scanMisses  int64
	sniffMisses int64
}

var defaultBufferPool = NewBufferPool()

func NewBufferPool() *BufferPool {
	pool := &BufferPool{}
	pool.scan = sync.Pool{
		New: func() interface{} {
			atomic.AddInt64(&pool.scanMisses, 1)
			return &bufferWrapper{b: make([]byte, ScanBufferSize)}
		},
	}
	pool.sniff = sync.Pool{
		New: func() interface{} {
			atomic.AddInt64(&pool.sniffMisses, 1)
			return &bufferWrapper{b: make([]byte, SniffBufferSize)}
		},
	}
	return pool
}

// Get retrieves a buffer from the appropriate pool
func (p *BufferPool) Get(size BufferSize) []byte {
	if size == SniffBuffer {
		atomic.AddInt64(&p.sniffGets, 1)
		return p.sniff.Get().(*bufferWrapper).b
	}
	atomic.AddInt64(&p.scanGets, 1)
	return p.scan.Get().(*bufferWrapper).b
}

// Put returns a buffer to the appropriate pool. The buffer is zeroed.
func (p *BufferPool) Put(buffer []byte, size BufferSize) {
	if cap(buffer) > MaxRetainedBufferSize {
		return
	}
	buffer = buffer[:cap(buffer)]
	clear(buffer)

	wrapper := &bufferWrapper{b: buffer}
	if size == SniffBuffer {
		p.sniff.Put(wrapper)
		return
	}
	p.scan.Put(wrapper)
}

// BufferPoolMetrics counts pool requests and the ones that allocated.
type BufferPoolMetrics struct {
	ScanGets    int64
	ScanMisses  int64
	SniffGets   int64
	SniffMisses int64
}

func (p *BufferPool) GetMetrics() BufferPoolMetrics {
	return BufferPoolMetrics{
		ScanGets:    atomic.LoadInt64(&p.scanGets),
		ScanMisses:  atomic.LoadInt64(&p.scanMisses),
		SniffGets:   atomic.LoadInt64(&p.sniffGets),
		SniffMisses: atomic.LoadInt64(&p.sniffMisses),
	}
}

// HitRate is the share of requests served without allocating.
func (m BufferPoolMetrics) HitRate() float64 {
	gets := m.ScanGets + m.SniffGets
	if gets == 0 {
		return 0.0
	}
	return float64(gets-m.ScanMisses-m.SniffMisses) / float64(gets)
}

// GetBuffer gets a buffer from the default pool
func GetBuffer(size BufferSize) []byte {
	return defaultBufferPool.Get(size)
}

// PutBuffer returns a buffer to the default pool
func PutBuffer(buffer []byte, size BufferSize) {
	defaultBufferPool.Put(buffer, size)
}

// GetBufferPoolMetrics returns metrics for the default pool
func GetBufferPoolMetrics() BufferPoolMetrics {
	return defaultBufferPool.GetMetrics()
}

// WithBufferReturn executes a function with a pooled buffer and returns
// its values. The buffer must not escape fn.
func WithBufferReturn[T any](size BufferSize, fn func([]byte) (T, error)) (T, error) {
	buffer := GetBuffer(size)
	defer PutBuffer(buffer, size)
	return fn(buffer)
}
