// Package transport implements the NDJSON-over-stdio and NDJSON-over-TCP
// framing loops (spec.md §4.J): one goroutine decodes incoming request
// lines and dispatches them, a second drains the session manager's
// notification queue and writes it out, sharing a single mutex-guarded
// writer so response and notification lines never interleave mid-line.
package transport

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/armaxri/termihub-agent/internal/dispatch"
	"github.com/armaxri/termihub-agent/internal/logger"
	"github.com/armaxri/termihub-agent/internal/rpc"
	"github.com/armaxri/termihub-agent/internal/sessions"
)

// Loop is one NDJSON session: a reader, a writer, the shared dispatcher,
// and the session manager whose notifications get fanned out.
type Loop struct {
	dispatcher *dispatch.Dispatcher
	manager    *sessions.Manager

	writeMu sync.Mutex
	w       io.Writer
}

func newLoop(d *dispatch.Dispatcher, mgr *sessions.Manager, w io.Writer) *Loop {
	return &Loop{dispatcher: d, manager: mgr, w: w}
}

// Run reads NDJSON lines from r until EOF or a read error, dispatching
// each and writing its response, while a second goroutine fans outbound
// notifications to the same writer. A line over MaxLineBytes gets a
// PARSE_ERROR response and reading continues; only a line too long for
// the scanner's buffer (4 × MaxLineBytes) ends the loop.
// Run returns once the reader closes; done stops the notification
// fan-out goroutine.
func (l *Loop) Run(r io.Reader) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.pumpNotifications(done)
	}()

	l.readLoop(r)
	close(done)
	wg.Wait()
}

func (l *Loop) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	// The scanner's max token size must exceed MaxLineBytes, not equal it:
	// bufio.Scanner fails a token at exactly its limit with ErrTooLong
	// before ever returning it, which would kill the loop instead of
	// letting the oversized-line check below reject it with a PARSE_ERROR.
	// The extra headroom (beyond MaxLineBytes+1) keeps moderately-larger
	// lines recoverable too, rather than only the exact boundary case.
	scanner.Buffer(make([]byte, 0, 64*1024), rpc.MaxLineBytes*4)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if len(line) > rpc.MaxLineBytes {
			l.writeResponse(rpc.NewErrorResponse(rpc.NullID(), rpc.ErrParseError("line exceeds maximum size")))
			continue
		}

		req, _, isRequest, err := rpc.DecodeLine(line)
		if err != nil {
			l.writeResponse(rpc.NewErrorResponse(rpc.NullID(), rpc.ErrParseError(err.Error())))
			continue
		}
		if !isRequest {
			// Inbound notifications (no id) carry nothing the agent acts
			// on in this protocol direction; ignore.
			continue
		}

		resp := l.dispatcher.Handle(req)
		l.writeResponse(resp)
	}

	if err := scanner.Err(); err != nil {
		logger.Warn("transport read loop ended", "err", err)
	}
}

func (l *Loop) pumpNotifications(done <-chan struct{}) {
	notify := l.manager.Notifications()
	for {
		for {
			n, ok := notify.Pop()
			if !ok {
				break
			}
			l.writeLine(n)
		}
		select {
		case <-done:
			return
		default:
		}
		notify.Wait(done)
		select {
		case <-done:
			return
		default:
		}
	}
}

func (l *Loop) writeResponse(resp *rpc.Response) {
	l.writeLine(resp)
}

func (l *Loop) writeLine(v any) {
	b, err := rpc.EncodeLine(v)
	if err != nil {
		logger.Error("failed to encode outgoing line", "err", err)
		return
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if _, err := l.w.Write(b); err != nil {
		logger.Debug("write failed", "err", err)
	}
}
