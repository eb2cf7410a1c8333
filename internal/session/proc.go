package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ProcFactory runs each session as a subprocess of a configurable agent
// command. The session context is written to the process on stdin as JSON;
// the process reports its result as a JSON object on the last line of
// stdout. Context snapshots are kept on disk so sessions can be resumed by
// ID after a restart.
type ProcFactory struct {
	// command is the agent executable, e.g. "claude" or a wrapper script.
	command string
	// args are fixed arguments passed before any session-specific ones.
	args []string
	// stateDir holds per-session context snapshots for resume.
	stateDir string
}

// NewProcFactory creates a ProcFactory. stateDir is created if missing.
func NewProcFactory(command string, args []string, stateDir string) (*ProcFactory, error) {
	if command == "" {
		return nil, fmt.Errorf("agent command is required")
	}
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create session state directory: %w", err)
	}
	return &ProcFactory{command: command, args: args, stateDir: stateDir}, nil
}

// Create starts a new session subprocess briefed with sc.
func (f *ProcFactory) Create(ctx context.Context, sc Context) (Handle, error) {
	id := "sess-" + uuid.New().String()[:8]
	if err := f.saveContext(id, sc); err != nil {
		return nil, err
	}
	return f.start(ctx, id, sc, false)
}

// Resume reattaches to a session by re-spawning the agent command with the
// persisted context and a resume flag. Returns an error if no context
// snapshot exists for the ID.
func (f *ProcFactory) Resume(ctx context.Context, sessionID string) (Handle, error) {
	sc, err := f.loadContext(sessionID)
	if err != nil {
		return nil, err
	}
	return f.start(ctx, sessionID, sc, true)
}

// start spawns the subprocess and wires its stdin/stdout.
func (f *ProcFactory) start(ctx context.Context, id string, sc Context, resume bool) (Handle, error) {
	payload, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("marshal session context: %w", err)
	}

	args := append([]string{}, f.args...)
	if resume {
		args = append(args, "--resume", id)
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, f.command, args...)
	if sc.WorkDir != "" {
		cmd.Dir = sc.WorkDir
	}
	cmd.Env = append(os.Environ(), "STEWARD_SESSION_ID="+id)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start agent command: %w", err)
	}

	h := &procHandle{
		id:     id,
		cmd:    cmd,
		stdout: &stdout,
		stderr: &stderr,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		h.err = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

// contextPath returns the snapshot file for a session ID.
func (f *ProcFactory) contextPath(id string) string {
	return filepath.Join(f.stateDir, id+".json")
}

func (f *ProcFactory) saveContext(id string, sc Context) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}
	if err := os.WriteFile(f.contextPath(id), data, 0644); err != nil {
		return fmt.Errorf("persist session context: %w", err)
	}
	return nil
}

func (f *ProcFactory) loadContext(id string) (Context, error) {
	var sc Context
	data, err := os.ReadFile(f.contextPath(id))
	if err != nil {
		return sc, fmt.Errorf("load session context %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("decode session context %s: %w", id, err)
	}
	return sc, nil
}

// procHandle is the Handle for a subprocess-backed session.
type procHandle struct {
	id     string
	cmd    *exec.Cmd
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	once   sync.Once
}

// ID returns the session identifier.
func (h *procHandle) ID() string {
	return h.id
}

// Wait blocks until the subprocess exits and parses the last stdout line
// as the session result.
func (h *procHandle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	if h.err != nil {
		return Result{}, fmt.Errorf("agent command failed: %w: %s", h.err, strings.TrimSpace(h.stderr.String()))
	}

	return parseResult(h.stdout.String())
}

// Cancel force-terminates the subprocess.
func (h *procHandle) Cancel() error {
	h.once.Do(h.cancel)
	return nil
}

// parseResult extracts the session result from the last non-empty line of
// the agent's stdout.
func parseResult(out string) (Result, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var res Result
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			return Result{}, fmt.Errorf("parse session result: %w", err)
		}
		if !res.Outcome.Valid() {
			return Result{}, fmt.Errorf("parse session result: unknown outcome %q", res.Outcome)
		}
		return res, nil
	}
	return Result{}, fmt.Errorf("agent command produced no result")
}

// Verify ProcFactory implements Factory at compile time.
var _ Factory = (*ProcFactory)(nil)
