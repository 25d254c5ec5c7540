package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"github.com/coderoom/engine/internal/logger"
	"github.com/coderoom/engine/internal/telemetry"
	"github.com/coderoom/engine/pkg/filetree"
	"github.com/coderoom/engine/pkg/hub"
	"github.com/coderoom/engine/pkg/metrics"
	"github.com/coderoom/engine/pkg/room"
	"github.com/coderoom/engine/pkg/rooms"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// maxMessageSize bounds a single inbound WebSocket frame; overridden by
// Config.MaxMessageSize when a Server is constructed.
var maxMessageSize int64 = 1 << 20

// connection is one client's WebSocket session: a generated userID, the
// room it has joined (if any), and the goroutines forwarding hub events
// out to the socket and inbound frames into the room manager.
type connection struct {
	rooms    *room.Manager
	conn     *websocket.Conn
	userID   string
	username string

	roomCode string
	done     chan struct{}
}

func serveWS(rm *room.Manager, w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("gateway: websocket upgrade failed", "error", err)
		return
	}

	ws.SetReadLimit(maxMessageSize)

	c := &connection{
		rooms:  rm,
		conn:   ws,
		userID: uuid.NewString(),
		done:   make(chan struct{}),
	}
	metrics.ConnectionOpened()
	c.readLoop()
}

// readLoop processes inbound frames until the connection closes, then
// tears down the user's room membership and PTY.
func (c *connection) readLoop() {
	defer c.teardown()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env inboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError("", "malformed frame")
			continue
		}

		c.dispatch(env)
	}
}

func (c *connection) teardown() {
	close(c.done)
	c.conn.Close()
	if c.roomCode != "" {
		c.rooms.Leave(c.roomCode, c.userID, c.username)
	}
	metrics.ConnectionClosed()
}

// forwardEvents drains the user's hub channel onto the socket until done
// is closed. Started once the connection has joined a room.
func (c *connection) forwardEvents(ch <-chan hub.Message) {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.write(outboundEnvelope{Event: msg.Event, Data: msg.Payload})
		case <-c.done:
			return
		}
	}
}

var writeDeadline = 10 * time.Second

func (c *connection) write(env outboundEnvelope) {
	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := c.conn.WriteJSON(env); err != nil {
		logger.Debug("gateway: write failed", "user", c.userID, "error", err)
	}
}

func (c *connection) ack(event, ackID string, data any) {
	if ackID == "" {
		return
	}
	c.write(outboundEnvelope{Event: event, AckID: ackID, Data: data})
}

func (c *connection) sendError(ackID, message string) {
	if ackID != "" {
		c.write(outboundEnvelope{Event: hub.EventFileError, AckID: ackID, Data: map[string]any{"success": false, "error": message}})
		return
	}
	c.write(outboundEnvelope{Event: hub.EventFileError, Data: map[string]string{"message": message}})
}

func (c *connection) joinRoomState(code string) {
	c.roomCode = code
	ch := c.rooms.Events(code, c.userID)
	go c.forwardEvents(ch)
}

func (c *connection) dispatch(env inboundEnvelope) {
	ctx := context.Background()
	ctx = logger.WithContext(ctx, logger.NewLogContext("").WithRoom(c.roomCode).WithUser(c.userID).WithEvent(env.Event))

	var span trace.Span
	ctx, span = telemetry.StartGatewayEventSpan(ctx, env.Event, telemetry.UserID(c.userID), telemetry.RoomCode(c.roomCode))
	defer span.End()

	switch env.Event {
	case eventCreateRoom:
		c.handleCreateRoom(ctx, env)
	case eventJoinRoom:
		c.handleJoinRoom(ctx, env)
	case eventGetFiles:
		c.handleGetFiles(env)
	case eventGetFileContent:
		c.handleGetFileContent(env)
	case eventSwitchFile:
		c.handleSwitchFile(env)
	case eventCodeChange:
		c.handleCodeChange(env)
	case eventCreateFile:
		c.handleCreateFile(env)
	case eventCreateFolder:
		c.handleCreateFolder(env)
	case eventDeleteItem:
		c.handleDeleteItem(env)
	case eventRenameItem:
		c.handleRenameItem(env)
	case eventMoveItem:
		c.handleMoveItem(env)
	case eventToggleFolder:
		c.handleToggleFolder(env)
	case eventTerminalInit:
		c.handleTerminalInit(env)
	case eventTerminalInput:
		c.handleTerminalInput(env)
	case eventTerminalResize:
		c.handleTerminalResize(env)
	case eventExecuteCommand:
		c.handleExecuteCommand(env)
	case eventClearTerminal:
		c.handleClearTerminal(env)
	case eventKillProcess:
		c.handleKillProcess(env)
	case eventRunFile:
		c.handleRunFile(env)
	case eventSaveAndRun:
		c.handleSaveAndRun(env)
	case eventGetWorkingDirectory:
		c.handleGetWorkingDirectory(env)
	default:
		logger.Debug("gateway: unknown event", "event", env.Event)
	}
}

func decodeAndValidate[T any](env inboundEnvelope) (T, error) {
	var payload T
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return payload, err
	}
	if err := validate.Struct(payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (c *connection) handleCreateRoom(ctx context.Context, env inboundEnvelope) {
	p, err := decodeAndValidate[createRoomPayload](env)
	if err != nil {
		c.ack(eventCreateRoom, env.AckID, map[string]any{"success": false, "error": "invalid payload"})
		return
	}

	c.username = p.Username
	code, _, _, err := c.rooms.CreateRoom(ctx, c.userID, p.Username, p.Password)
	if err != nil {
		c.ack(eventCreateRoom, env.AckID, map[string]any{"success": false, "error": err.Error()})
		return
	}

	c.joinRoomState(code)
	c.ack(eventCreateRoom, env.AckID, map[string]any{"success": true, "roomCode": code})
	c.write(outboundEnvelope{Event: hub.EventRoomCreated, Data: map[string]string{"roomCode": code}})
}

func (c *connection) handleJoinRoom(ctx context.Context, env inboundEnvelope) {
	p, err := decodeAndValidate[joinRoomPayload](env)
	if err != nil {
		c.ack(eventJoinRoom, env.AckID, map[string]any{"success": false, "error": "invalid payload"})
		return
	}

	c.username = p.Username
	files, activeFile, err := c.rooms.JoinRoom(ctx, c.userID, p.Username, p.RoomCode, p.Password)
	if err != nil {
		reason := "join failed"
		if errors.Is(err, rooms.ErrRoomNotFound) {
			reason = "room not found"
		} else if errors.Is(err, rooms.ErrBadPassword) {
			reason = "bad password"
		} else if errors.Is(err, room.ErrRoomFull) {
			reason = "room full"
		}
		c.ack(eventJoinRoom, env.AckID, map[string]any{"success": false, "error": reason})
		return
	}

	c.joinRoomState(p.RoomCode)
	c.ack(eventJoinRoom, env.AckID, map[string]any{"success": true, "files": files, "activeFile": activeFile})
}

func (c *connection) handleGetFiles(env inboundEnvelope) {
	p, err := decodeAndValidate[roomScopedPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	files, err := c.rooms.Snapshot(p.RoomCode)
	if err != nil {
		c.sendError(env.AckID, err.Error())
		return
	}
	c.ack(eventGetFiles, env.AckID, map[string]any{"files": files})
}

func (c *connection) handleGetFileContent(env inboundEnvelope) {
	p, err := decodeAndValidate[getFileContentPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	content, err := c.rooms.FileContent(p.RoomCode, p.FileName)
	if err != nil {
		c.sendError(env.AckID, err.Error())
		return
	}
	c.ack(eventGetFileContent, env.AckID, map[string]any{"content": content})
}

func (c *connection) handleSwitchFile(env inboundEnvelope) {
	p, err := decodeAndValidate[switchFilePayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	if err := c.rooms.SwitchActiveFile(p.RoomCode, c.userID, p.FileName); err != nil {
		c.sendError(env.AckID, err.Error())
	}
}

func (c *connection) handleCodeChange(env inboundEnvelope) {
	p, err := decodeAndValidate[codeChangePayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	if err := c.rooms.SetFileContent(p.RoomCode, p.FileName, p.Code); err != nil {
		c.sendError(env.AckID, err.Error())
	}
}

func (c *connection) handleCreateFile(env inboundEnvelope) {
	p, err := decodeAndValidate[createFilePayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	path := joinParent(p.ParentFolder, p.FileName)
	if err := c.rooms.CreateFile(p.RoomCode, path, ""); err != nil {
		c.sendError(env.AckID, err.Error())
	}
}

func (c *connection) handleCreateFolder(env inboundEnvelope) {
	p, err := decodeAndValidate[createFolderPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	path := joinParent(p.ParentFolder, p.FolderName)
	if err := c.rooms.CreateFolder(p.RoomCode, path); err != nil {
		c.sendError(env.AckID, err.Error())
	}
}

func joinParent(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func (c *connection) handleDeleteItem(env inboundEnvelope) {
	p, err := decodeAndValidate[deleteItemPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	if err := c.rooms.DeleteItem(p.RoomCode, p.ItemPath); err != nil {
		c.sendError(env.AckID, err.Error())
	}
}

func (c *connection) handleRenameItem(env inboundEnvelope) {
	p, err := decodeAndValidate[renameItemPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	if err := c.rooms.RenameItem(p.RoomCode, p.OldPath, p.NewPath); err != nil {
		c.sendError(env.AckID, err.Error())
	}
}

func (c *connection) handleMoveItem(env inboundEnvelope) {
	p, err := decodeAndValidate[moveItemPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	kind := filetree.KindFile
	if p.ItemType == "folder" {
		kind = filetree.KindFolder
	}
	if err := c.rooms.MoveItem(p.RoomCode, p.SourcePath, p.TargetPath, kind); err != nil {
		c.sendError(env.AckID, err.Error())
	}
}

func (c *connection) handleToggleFolder(env inboundEnvelope) {
	p, err := decodeAndValidate[toggleFolderPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	if err := c.rooms.ToggleFolder(p.RoomCode, p.FolderPath); err != nil {
		c.sendError(env.AckID, err.Error())
	}
}

func (c *connection) handleTerminalInit(env inboundEnvelope) {
	p, err := decodeAndValidate[roomScopedPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	if err := c.rooms.InitTerminal(p.RoomCode, c.userID); err != nil {
		c.sendError(env.AckID, err.Error())
	}
}

func (c *connection) handleTerminalInput(env inboundEnvelope) {
	p, err := decodeAndValidate[terminalInputPayload](env)
	if err != nil {
		return
	}
	c.rooms.WriteTerminalInput(p.RoomCode, c.userID, p.Input)
}

func (c *connection) handleTerminalResize(env inboundEnvelope) {
	p, err := decodeAndValidate[terminalResizePayload](env)
	if err != nil {
		return
	}
	c.rooms.ResizeTerminal(p.RoomCode, c.userID, p.Cols, p.Rows)
}

func (c *connection) handleExecuteCommand(env inboundEnvelope) {
	p, err := decodeAndValidate[executeCommandPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	if err := c.rooms.ExecuteCommand(p.RoomCode, c.userID, p.Command); err != nil {
		c.sendError(env.AckID, err.Error())
	}
}

func (c *connection) handleClearTerminal(env inboundEnvelope) {
	p, err := decodeAndValidate[roomScopedPayload](env)
	if err != nil {
		return
	}
	c.rooms.ClearTerminal(p.RoomCode, c.userID)
}

func (c *connection) handleKillProcess(env inboundEnvelope) {
	p, err := decodeAndValidate[roomScopedPayload](env)
	if err != nil {
		return
	}
	c.rooms.SendInterrupt(p.RoomCode, c.userID)
}

func (c *connection) handleRunFile(env inboundEnvelope) {
	p, err := decodeAndValidate[runFilePayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	c.rooms.RunFile(p.RoomCode, c.userID, p.FileName)
}

func (c *connection) handleSaveAndRun(env inboundEnvelope) {
	p, err := decodeAndValidate[saveAndRunPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	c.rooms.SaveAndRun(p.RoomCode, c.userID, p.FileName)
}

func (c *connection) handleGetWorkingDirectory(env inboundEnvelope) {
	p, err := decodeAndValidate[roomScopedPayload](env)
	if err != nil {
		c.sendError(env.AckID, "invalid payload")
		return
	}
	dir, err := c.rooms.WorkingDirectory(p.RoomCode)
	if err != nil {
		c.sendError(env.AckID, err.Error())
		return
	}
	c.ack(eventGetWorkingDirectory, env.AckID, map[string]string{"workingDirectory": dir})
}
