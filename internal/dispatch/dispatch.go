// Package dispatch implements method routing, parameter validation,
// and backend invocation for the JSON-RPC surface (spec.md §4.I).
package dispatch

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/armaxri/termihub-agent/internal/backend"
	"github.com/armaxri/termihub-agent/internal/files"
	"github.com/armaxri/termihub-agent/internal/monitor"
	"github.com/armaxri/termihub-agent/internal/rpc"
	"github.com/armaxri/termihub-agent/internal/sessions"
	"github.com/google/uuid"
	"github.com/pkg/sftp"
)

const AgentVersion = "0.1.0"

// Dispatcher routes NDJSON requests to the session manager and file/
// monitoring subsystems, enforcing the initialize-must-precede-all
// policy and per-method parameter shapes.
type Dispatcher struct {
	mgr *sessions.Manager

	mu          sync.Mutex
	initialized bool

	subs map[string]func() // subscription_id -> unsubscribe
}

func New(mgr *sessions.Manager) *Dispatcher {
	return &Dispatcher{mgr: mgr, subs: make(map[string]func())}
}

// Handle routes one decoded request to its handler and always returns
// a Response carrying the request's id, success or error.
func (d *Dispatcher) Handle(req *rpc.Request) *rpc.Response {
	if req.JSONRPC != "2.0" {
		return rpc.NewErrorResponse(req.ID, rpc.ErrInvalidRequest(`jsonrpc must be "2.0"`))
	}

	if req.Method != "initialize" && req.Method != "health.check" {
		d.mu.Lock()
		ready := d.initialized
		d.mu.Unlock()
		if !ready {
			return rpc.NewErrorResponse(req.ID, rpc.ErrNotInitialized())
		}
	}

	result, rpcErr := d.route(req.Method, req.Params)
	if rpcErr != nil {
		return rpc.NewErrorResponse(req.ID, rpcErr)
	}
	resp, err := rpc.NewResult(req.ID, result)
	if err != nil {
		return rpc.NewErrorResponse(req.ID, rpc.ErrInternal(err.Error()))
	}
	return resp
}

func (d *Dispatcher) route(method string, params json.RawMessage) (any, *rpc.Error) {
	switch method {
	case "initialize":
		return d.handleInitialize(params)
	case "shutdown":
		return d.handleShutdown()
	case "health.check":
		return map[string]string{"status": "ok"}, nil

	case "session.create":
		return d.handleSessionCreate(params)
	case "session.list":
		return d.handleSessionList()
	case "session.attach":
		return d.handleWithSessionID(params, d.mgr.Attach)
	case "session.detach":
		return d.handleWithSessionID(params, d.mgr.Detach)
	case "session.close":
		return d.handleWithSessionID(params, d.mgr.Close)
	case "session.input":
		return d.handleSessionInput(params)
	case "session.resize":
		return d.handleSessionResize(params)

	case "files.list":
		return d.handleFiles(params, "list")
	case "files.read":
		return d.handleFiles(params, "read")
	case "files.write":
		return d.handleFiles(params, "write")
	case "files.delete":
		return d.handleFiles(params, "delete")
	case "files.rename":
		return d.handleFiles(params, "rename")
	case "files.stat":
		return d.handleFiles(params, "stat")

	case "monitoring.subscribe":
		return d.handleMonitoringSubscribe(params)
	case "monitoring.unsubscribe":
		return d.handleMonitoringUnsubscribe(params)

	default:
		return nil, rpc.ErrMethodNotFound(method)
	}
}

type initializeParams struct {
	ProtocolVersion string `json:"protocol_version"`
}

func (d *Dispatcher) handleInitialize(raw json.RawMessage) (any, *rpc.Error) {
	var p initializeParams
	if err := json.Unmarshal(raw, &p); err != nil || p.ProtocolVersion == "" {
		return nil, rpc.ErrInvalidParams("protocol_version is required")
	}

	ok, err := CheckVersion(AgentVersion, p.ProtocolVersion)
	if err != nil {
		return nil, rpc.ErrInvalidParams(err.Error())
	}
	if !ok {
		return nil, rpc.ErrVersionNotSupported(fmt.Sprintf(
			"agent protocol %s incompatible with requested %s", AgentVersion, p.ProtocolVersion))
	}

	d.mu.Lock()
	d.initialized = true
	d.mu.Unlock()

	return map[string]any{
		"agent_version": AgentVersion,
		"capabilities":  []string{"session", "files", "monitoring"},
	}, nil
}

func (d *Dispatcher) handleShutdown() (any, *rpc.Error) {
	d.mgr.CloseAll()
	return map[string]any{}, nil
}

func (d *Dispatcher) handleSessionCreate(raw json.RawMessage) (any, *rpc.Error) {
	var p sessions.CreateParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, rpc.ErrInvalidParams(err.Error())
	}
	if p.Type == "" {
		return nil, rpc.ErrInvalidParams("type is required")
	}

	snap, err := d.mgr.Create(p)
	if err != nil {
		if rpcErr, ok := err.(*rpc.Error); ok {
			return nil, rpcErr
		}
		return nil, rpc.ErrInternal(err.Error())
	}
	return snap, nil
}

func (d *Dispatcher) handleSessionList() (any, *rpc.Error) {
	return map[string]any{"sessions": d.mgr.List()}, nil
}

type sessionIDParams struct {
	SessionID string `json:"session_id"`
}

func (d *Dispatcher) handleWithSessionID(raw json.RawMessage, fn func(string) error) (any, *rpc.Error) {
	var p sessionIDParams
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		return nil, rpc.ErrInvalidParams("session_id is required")
	}
	if err := fn(p.SessionID); err != nil {
		if rpcErr, ok := err.(*rpc.Error); ok {
			return nil, rpcErr
		}
		return nil, rpc.ErrInternal(err.Error())
	}
	return map[string]any{}, nil
}

type sessionInputParams struct {
	SessionID string `json:"session_id"`
	Data      string `json:"data"`
}

func (d *Dispatcher) handleSessionInput(raw json.RawMessage) (any, *rpc.Error) {
	var p sessionInputParams
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		return nil, rpc.ErrInvalidParams("session_id is required")
	}
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, rpc.ErrInvalidParams("data must be base64")
	}
	if err := d.mgr.SendInput(p.SessionID, data); err != nil {
		if rpcErr, ok := err.(*rpc.Error); ok {
			return nil, rpcErr
		}
		return nil, rpc.ErrInternal(err.Error())
	}
	return map[string]any{}, nil
}

type sessionResizeParams struct {
	SessionID string `json:"session_id"`
	Cols      int    `json:"cols"`
	Rows      int    `json:"rows"`
}

func (d *Dispatcher) handleSessionResize(raw json.RawMessage) (any, *rpc.Error) {
	var p sessionResizeParams
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		return nil, rpc.ErrInvalidParams("session_id is required")
	}
	if err := d.mgr.Resize(p.SessionID, p.Cols, p.Rows); err != nil {
		if rpcErr, ok := err.(*rpc.Error); ok {
			return nil, rpcErr
		}
		return nil, rpc.ErrInternal(err.Error())
	}
	return map[string]any{}, nil
}

type filesParams struct {
	SessionID   string `json:"session_id"`
	Path        string `json:"path"`
	NewPath     string `json:"new_path,omitempty"`
	Data        string `json:"data,omitempty"`
	IsDirectory bool   `json:"is_directory,omitempty"`
}

func (d *Dispatcher) handleFiles(raw json.RawMessage, op string) (any, *rpc.Error) {
	var p filesParams
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		return nil, rpc.ErrInvalidParams("session_id is required")
	}

	rawCfg, kind, ok := d.mgr.Config(p.SessionID)
	if !ok {
		return nil, rpc.ErrSessionNotFound(p.SessionID)
	}
	be, cleanup, rpcErr := d.filesBackendFor(kind, rawCfg)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if cleanup != nil {
		defer cleanup()
	}

	switch op {
	case "list":
		entries, err := be.List(p.Path)
		if err != nil {
			return nil, toRPCError(err)
		}
		return map[string]any{"entries": entries}, nil
	case "read":
		data, err := be.Read(p.Path)
		if err != nil {
			return nil, toRPCError(err)
		}
		return map[string]any{"data": base64.StdEncoding.EncodeToString(data)}, nil
	case "write":
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, rpc.ErrInvalidParams("data must be base64")
		}
		if err := be.Write(p.Path, data); err != nil {
			return nil, toRPCError(err)
		}
		return map[string]any{}, nil
	case "delete":
		if err := be.Delete(p.Path, p.IsDirectory); err != nil {
			return nil, toRPCError(err)
		}
		return map[string]any{}, nil
	case "rename":
		if err := be.Rename(p.Path, p.NewPath); err != nil {
			return nil, toRPCError(err)
		}
		return map[string]any{}, nil
	case "stat":
		entry, err := be.Stat(p.Path)
		if err != nil {
			return nil, toRPCError(err)
		}
		return entry, nil
	default:
		return nil, rpc.ErrInternal("unknown file op")
	}
}

// filesBackendFor selects the file backend variant by session type
// (spec.md §4.L: FILE_BROWSING_NOT_SUPPORTED is for serial and telnet
// only — ssh-jump gets the SFTP subsystem). Shell/docker reuse a
// stateless LocalBackend; ssh-jump opens a dedicated SSH connection and
// SFTP subsystem per file operation (mirroring handleMonitoringSubscribe's
// auxiliary-connection pattern) rather than reusing the session's PTY
// channel, so the returned cleanup func must be called once the caller
// is done with the backend.
func (d *Dispatcher) filesBackendFor(kind backend.Kind, rawCfg json.RawMessage) (files.Backend, func(), *rpc.Error) {
	switch kind {
	case backend.KindShell, backend.KindDocker:
		return files.NewLocalBackend(), nil, nil
	case backend.KindSerial, backend.KindTelnet:
		return files.UnsupportedBackend{}, nil, nil
	case backend.KindSSHJump:
		return d.sftpBackendFor(rawCfg)
	default:
		return files.UnsupportedBackend{}, nil, nil
	}
}

func (d *Dispatcher) sftpBackendFor(rawCfg json.RawMessage) (files.Backend, func(), *rpc.Error) {
	var cfg backend.SSHJumpConfig
	if err := json.Unmarshal(rawCfg, &cfg); err != nil {
		return nil, nil, rpc.ErrInvalidConfiguration(err.Error())
	}

	exec, err := monitor.DialSSHExecutor(cfg.Host, cfg.Port, cfg.User, cfg.IdentityFile)
	if err != nil {
		return nil, nil, rpc.ErrFileOperationFailed(err.Error())
	}
	sftpClient, err := sftp.NewClient(exec.Client())
	if err != nil {
		_ = exec.Close()
		return nil, nil, rpc.ErrFileOperationFailed(err.Error())
	}

	cleanup := func() {
		_ = sftpClient.Close()
		_ = exec.Close()
	}
	return files.NewSFTPBackend(sftpClient), cleanup, nil
}

func toRPCError(err error) *rpc.Error {
	if rpcErr, ok := err.(*rpc.Error); ok {
		return rpcErr
	}
	return rpc.ErrFileOperationFailed(err.Error())
}

type monitoringSubscribeParams struct {
	SessionID string `json:"session_id"`
}

func (d *Dispatcher) handleMonitoringSubscribe(raw json.RawMessage) (any, *rpc.Error) {
	var p monitoringSubscribeParams
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		return nil, rpc.ErrInvalidParams("session_id is required")
	}

	rawCfg, kind, ok := d.mgr.Config(p.SessionID)
	if !ok {
		return nil, rpc.ErrSessionNotFound(p.SessionID)
	}
	if kind != backend.KindSSHJump {
		return nil, rpc.ErrMonitoringError("monitoring is only supported for ssh-jump sessions")
	}

	var cfg backend.SSHJumpConfig
	if err := json.Unmarshal(rawCfg, &cfg); err != nil {
		return nil, rpc.ErrMonitoringError(err.Error())
	}

	exec, err := monitor.DialSSHExecutor(cfg.Host, cfg.Port, cfg.User, cfg.IdentityFile)
	if err != nil {
		return nil, rpc.ErrMonitoringError(err.Error())
	}

	provider := monitor.NewProvider(exec)
	statsCh := provider.Subscribe(cfg.Host)

	subID := uuid.NewString()
	d.mu.Lock()
	d.subs[subID] = func() {
		provider.Unsubscribe()
		_ = exec.Close()
	}
	d.mu.Unlock()

	go func() {
		for stats := range statsCh {
			d.mgr.Emit("monitoring.stats", map[string]any{
				"subscription_id": subID,
				"stats":           stats,
			})
		}
	}()

	return map[string]string{"subscription_id": subID}, nil
}

type monitoringUnsubscribeParams struct {
	SubscriptionID string `json:"subscription_id"`
}

func (d *Dispatcher) handleMonitoringUnsubscribe(raw json.RawMessage) (any, *rpc.Error) {
	var p monitoringUnsubscribeParams
	if err := json.Unmarshal(raw, &p); err != nil || p.SubscriptionID == "" {
		return nil, rpc.ErrInvalidParams("subscription_id is required")
	}

	d.mu.Lock()
	cancel, ok := d.subs[p.SubscriptionID]
	delete(d.subs, p.SubscriptionID)
	d.mu.Unlock()

	if !ok {
		return nil, rpc.ErrMonitoringError("unknown subscription")
	}
	cancel()
	return map[string]any{}, nil
}
