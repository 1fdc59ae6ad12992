package transport

import (
	"os"

	"github.com/armaxri/termihub-agent/internal/dispatch"
	"github.com/armaxri/termihub-agent/internal/sessions"
)

// RunStdio serves one NDJSON session over stdin/stdout, the agent's
// `--stdio` mode (spec.md §4.J). It blocks until stdin closes.
func RunStdio(d *dispatch.Dispatcher, mgr *sessions.Manager) {
	loop := newLoop(d, mgr, os.Stdout)
	loop.Run(os.Stdin)
}
