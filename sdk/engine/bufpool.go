// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import "sync"

// BufferPool hands out chunk buffers of one fixed size. Buffers are stored
// as pointers so Put does not allocate.
type BufferPool struct {
	pool sync.Pool
	size int
}

func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		panic("engine: buffer size must be positive")
	}
	bp := &BufferPool{size: size}
	bp.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return bp
}

// Get returns a buffer of exactly Size bytes.
func (bp *BufferPool) Get() []byte {
	b := *(bp.pool.Get().(*[]byte))
	return b[:bp.size]
}

// Put recycles buf. Buffers with a smaller capacity are dropped.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) < bp.size {
		return
	}
	buf = buf[:bp.size]
	bp.pool.Put(&buf)
}

func (bp *BufferPool) Size() int { return bp.size }
