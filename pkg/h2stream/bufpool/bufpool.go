// Package bufpool centralizes scratch-buffer reuse for the hpack string
// codec's Huffman decoding and the bodycodec decompressors. Unlike a fixed size-class pool,
// bytebufferpool.Pool tracks a running calibration of recently requested
// sizes so returned buffers tend to already be the right size for the
// next caller.
package bufpool

import "github.com/valyala/bytebufferpool"

var pool bytebufferpool.Pool

// Get retrieves a reset buffer from the shared pool.
//
// IMPORTANT: you MUST call Put when done.
func Get() *bytebufferpool.ByteBuffer {
	return pool.Get()
}

// Put returns buf to the shared pool.
//
// After calling Put, you MUST NOT use buf anymore.
func Put(buf *bytebufferpool.ByteBuffer) {
	if buf != nil {
		pool.Put(buf)
	}
}
