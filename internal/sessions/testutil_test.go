package sessions

import (
	"github.com/armaxri/termihub-agent/internal/ringbuf"
	"github.com/armaxri/termihub-agent/internal/rpc"
)

func newTestRingbuf() *ringbuf.Buffer {
	return ringbuf.New(1024)
}

func asRPCError(err error) (*rpc.Error, bool) {
	rpcErr, ok := err.(*rpc.Error)
	return rpcErr, ok
}
