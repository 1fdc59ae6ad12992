package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/armaxri/termihub-agent/internal/dispatch"
	"github.com/armaxri/termihub-agent/internal/rpc"
	"github.com/armaxri/termihub-agent/internal/sessions"
)

// decodeResponses splits an NDJSON byte stream into individual decoded
// rpc.Response values, skipping any bare notifications (no "id" key).
func decodeResponses(t *testing.T, b []byte) []rpc.Response {
	t.Helper()
	var out []rpc.Response
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var probe struct {
			ID *json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			t.Fatalf("decode line %q: %v", line, err)
		}
		if probe.ID == nil {
			continue // notification
		}
		var resp rpc.Response
		if err := json.Unmarshal(line, &resp); err != nil {
			t.Fatalf("decode response %q: %v", line, err)
		}
		out = append(out, resp)
	}
	return out
}

func TestLoopRunDispatchesRequestsAndWritesResponses(t *testing.T) {
	mgr := sessions.NewManager(0, 64)
	d := dispatch.New(mgr)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","method":"health.check","id":1}`,
		`{"jsonrpc":"2.0","method":"initialize","params":{"protocol_version":"0.1.0"},"id":2}`,
		`{"jsonrpc":"2.0","method":"session.list","id":3}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	loop := newLoop(d, mgr, &out)
	loop.Run(strings.NewReader(input))

	responses := decodeResponses(t, out.Bytes())
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3: %+v", len(responses), responses)
	}
	for i, resp := range responses {
		if resp.Error != nil {
			t.Errorf("response %d unexpected error: %+v", i, resp.Error)
		}
	}
}

func TestLoopRunReportsParseErrorOnMalformedLine(t *testing.T) {
	mgr := sessions.NewManager(0, 64)
	d := dispatch.New(mgr)

	input := "not-json\n"

	var out bytes.Buffer
	loop := newLoop(d, mgr, &out)
	loop.Run(strings.NewReader(input))

	responses := decodeResponses(t, out.Bytes())
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1: %+v", len(responses), responses)
	}
	if responses[0].Error == nil || responses[0].Error.Code != rpc.CodeParseError {
		t.Fatalf("expected PARSE_ERROR, got %+v", responses[0].Error)
	}
}

func TestLoopRunRejectsOversizedLineWithoutKillingTheLoop(t *testing.T) {
	mgr := sessions.NewManager(0, 64)
	d := dispatch.New(mgr)

	// One byte past MaxLineBytes, per spec.md §8 scenario 5.
	oversized := strings.Repeat("a", rpc.MaxLineBytes+1)
	input := oversized + "\n" + `{"jsonrpc":"2.0","method":"health.check","id":1}` + "\n"

	var out bytes.Buffer
	loop := newLoop(d, mgr, &out)
	loop.Run(strings.NewReader(input))

	responses := decodeResponses(t, out.Bytes())
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2 (oversized-line error + the following request's reply): %+v", len(responses), responses)
	}
	if responses[0].Error == nil || responses[0].Error.Code != rpc.CodeParseError {
		t.Fatalf("expected PARSE_ERROR for the oversized line, got %+v", responses[0].Error)
	}
	if !responses[0].ID.IsNull() {
		t.Fatalf("expected a null id for the oversized-line error, got %+v", responses[0].ID)
	}
	if responses[1].Error != nil {
		t.Fatalf("expected the line after the oversized one to still be processed, got error %+v", responses[1].Error)
	}
}

func TestLoopRunIgnoresInboundNotifications(t *testing.T) {
	mgr := sessions.NewManager(0, 64)
	d := dispatch.New(mgr)

	input := `{"jsonrpc":"2.0","method":"some.notification"}` + "\n"

	var out bytes.Buffer
	loop := newLoop(d, mgr, &out)
	loop.Run(strings.NewReader(input))

	if out.Len() != 0 {
		t.Fatalf("expected no output for a bare notification, got %q", out.String())
	}
}
