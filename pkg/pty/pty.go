// Package pty manages one pseudo-terminal-backed shell per user joined to
// a room. Output is delivered exclusively to the owning user's private
// hub channel; input flows straight from the user to the shell. The
// lifecycle (persistent reader goroutine, separate exit-watcher
// goroutine, resize, signal) follows the shape of the pack's PTY session
// reference, trimmed to what a single-user terminal tab needs.
package pty

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/coderoom/engine/internal/logger"
	"github.com/coderoom/engine/pkg/hub"
	"github.com/coderoom/engine/pkg/metrics"
	"github.com/coderoom/engine/pkg/rundispatch"
)

const (
	readBufferSize   = 4096
	initialCols      = 80
	initialRows      = 30
	respawnDelay     = time.Second
	interruptByte    = 0x03
	terminalEndedMsg = "Terminal session ended"
)

// Manager owns one PTY session per (room, user) pair.
type Manager struct {
	h *hub.Hub

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu     sync.Mutex
	ptmx   *os.File
	cmd    *exec.Cmd
	roomCode string
	userID   string
	workDir  string
	closed   bool
}

func key(roomCode, userID string) string {
	return roomCode + "\x00" + userID
}

// New creates a PTY manager delivering output through h.
func New(h *hub.Hub) *Manager {
	return &Manager{h: h, sessions: make(map[string]*session)}
}

func loginShell() string {
	if runtime.GOOS == "windows" {
		return "powershell.exe"
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "bash"
}

func shellEnv() []string {
	env := os.Environ()
	return append(env,
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		"FORCE_COLOR=1",
	)
}

// Spawn starts a shell for userID in room, rooted at workDir. It is a
// no-op if a session already exists for that user in that room.
func (m *Manager) Spawn(roomCode, userID, workDir string) error {
	m.mu.Lock()
	k := key(roomCode, userID)
	if _, exists := m.sessions[k]; exists {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	return m.spawn(roomCode, userID, workDir)
}

func (m *Manager) spawn(roomCode, userID, workDir string) error {
	cmd := exec.Command(loginShell())
	cmd.Dir = workDir
	cmd.Env = shellEnv()

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: initialCols, Rows: initialRows})
	if err != nil {
		return fmt.Errorf("pty: spawn shell for user %s: %w", userID, err)
	}

	sess := &session{ptmx: ptmx, cmd: cmd, roomCode: roomCode, userID: userID, workDir: workDir}

	m.mu.Lock()
	m.sessions[key(roomCode, userID)] = sess
	m.mu.Unlock()

	go m.readLoop(sess)
	go m.waitLoop(sess)
	metrics.PTYSpawned()
	return nil
}

func (m *Manager) readLoop(sess *session) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := sess.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			m.h.Send(sess.roomCode, sess.userID, hub.Message{
				Event:   hub.EventTerminalOutput,
				Payload: chunk,
			})
		}
		if err != nil {
			return
		}
	}
}

func (m *Manager) waitLoop(sess *session) {
	sess.cmd.Wait()

	m.mu.Lock()
	k := key(sess.roomCode, sess.userID)
	current, ok := m.sessions[k]
	if ok && current == sess {
		delete(m.sessions, k)
	}
	m.mu.Unlock()
	if !ok || current != sess {
		return
	}

	metrics.PTYExited()
	sess.ptmx.Close()
	m.h.Send(sess.roomCode, sess.userID, hub.Message{
		Event:   hub.EventTerminalOutput,
		Payload: []byte("\x1b[31m" + terminalEndedMsg + "\x1b[0m\r\n"),
	})

	time.AfterFunc(respawnDelay, func() {
		m.mu.Lock()
		_, stillPending := m.sessions[k]
		m.mu.Unlock()
		if stillPending {
			return
		}
		if !m.h.HasMember(sess.roomCode, sess.userID) {
			return
		}
		if err := m.spawn(sess.roomCode, sess.userID, sess.workDir); err != nil {
			logger.Error("pty: respawn failed", "room", sess.roomCode, "user", sess.userID, "error", err)
		}
	})
}

func (m *Manager) get(roomCode, userID string) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[key(roomCode, userID)]
	return sess, ok
}

// ExecuteCommand writes commandLine followed by a carriage return to the
// user's shell.
func (m *Manager) ExecuteCommand(roomCode, userID, commandLine string) error {
	sess, ok := m.get(roomCode, userID)
	if !ok {
		return fmt.Errorf("pty: no session for user %s in room %s", userID, roomCode)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	_, err := sess.ptmx.Write([]byte(commandLine + "\r"))
	return err
}

// Write sends raw bytes straight to the user's shell, for keystroke-level
// terminal input (as opposed to ExecuteCommand's full command lines).
func (m *Manager) Write(roomCode, userID string, data []byte) error {
	sess, ok := m.get(roomCode, userID)
	if !ok {
		return fmt.Errorf("pty: no session for user %s in room %s", userID, roomCode)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	_, err := sess.ptmx.Write(data)
	return err
}

// SendInterrupt writes SIGINT's control byte to the user's shell.
func (m *Manager) SendInterrupt(roomCode, userID string) error {
	sess, ok := m.get(roomCode, userID)
	if !ok {
		return fmt.Errorf("pty: no session for user %s in room %s", userID, roomCode)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	_, err := sess.ptmx.Write([]byte{interruptByte})
	return err
}

// Resize changes the user's terminal geometry, swallowing transient
// errors from a session that is mid-teardown.
func (m *Manager) Resize(roomCode, userID string, cols, rows int) {
	sess, ok := m.get(roomCode, userID)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	_ = pty.Setsize(sess.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

// RunFile dispatches path through rundispatch and executes the resulting
// command line in the user's shell.
func (m *Manager) RunFile(roomCode, userID, path string) error {
	cmd, err := rundispatch.CommandFor(path)
	if err != nil {
		return err
	}
	return m.ExecuteCommand(roomCode, userID, cmd)
}

// Kill terminates the user's shell without scheduling a respawn. Use
// when the user disconnects.
func (m *Manager) Kill(roomCode, userID string) {
	m.mu.Lock()
	k := key(roomCode, userID)
	sess, ok := m.sessions[k]
	if ok {
		delete(m.sessions, k)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.closed = true
	sess.mu.Unlock()
	sess.cmd.Process.Kill()
	sess.ptmx.Close()
	metrics.PTYExited()
}
