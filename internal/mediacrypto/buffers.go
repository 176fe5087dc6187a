// Package mediacrypto implements the WhatsApp wire-format streaming
// encrypt and decrypt pipelines.
package mediacrypto

import (
	"sync"

	"github.com/rescale-labs/wa-media-core/internal/constants"
)

// streamBufPool hands out StreamChunkSize buffers for the read/encrypt/write
// and read/decrypt/write loops, cutting GC pressure on repeated large
// transfers.
var streamBufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, constants.StreamChunkSize)
		return &buf
	},
}

func getStreamBuffer() *[]byte {
	return streamBufPool.Get().(*[]byte)
}

func putStreamBuffer(buf *[]byte) {
	if buf == nil || len(*buf) != constants.StreamChunkSize {
		return
	}
	clear(*buf)
	streamBufPool.Put(buf)
}
