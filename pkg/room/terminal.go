package room

// ansiClearScreen resets cursor position and clears the visible screen,
// for clear-terminal.
const ansiClearScreen = "\x1b[H\x1b[2J"

// WriteTerminalInput forwards raw keystroke bytes to userID's PTY, for
// terminal-input.
func (m *Manager) WriteTerminalInput(code, userID, input string) error {
	return m.pty.Write(code, userID, []byte(input))
}

// ExecuteCommand writes commandLine to userID's PTY, for execute-command.
func (m *Manager) ExecuteCommand(code, userID, commandLine string) error {
	return m.pty.ExecuteCommand(code, userID, commandLine)
}

// ClearTerminal writes the ANSI clear-screen sequence to userID's PTY.
func (m *Manager) ClearTerminal(code, userID string) error {
	return m.pty.Write(code, userID, []byte(ansiClearScreen))
}

// SendInterrupt sends SIGINT to userID's PTY, for kill-process.
func (m *Manager) SendInterrupt(code, userID string) error {
	return m.pty.SendInterrupt(code, userID)
}

// ResizeTerminal resizes userID's PTY, for terminal-resize.
func (m *Manager) ResizeTerminal(code, userID string, cols, rows int) {
	m.pty.Resize(code, userID, cols, rows)
}
