package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for room engine operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Room domain attributes
	// ========================================================================
	AttrRoomCode    = "room.code"
	AttrUserID      = "room.user_id"
	AttrUsername    = "room.username"
	AttrMemberCount = "room.member_count"
	AttrEvent       = "gateway.event"

	// ========================================================================
	// File tree / working directory attributes
	// ========================================================================
	AttrOperation = "file.operation" // create, delete, rename, move, toggle
	AttrPath      = "file.path"
	AttrOldPath   = "file.old_path"
	AttrNewPath   = "file.new_path"
	AttrKind      = "file.kind" // file or folder
	AttrSize      = "file.size"

	// ========================================================================
	// Sync arbiter attributes
	// ========================================================================
	AttrSyncOrigin = "sync.origin" // editor, terminal, editor-folder, terminal-folder
	AttrSyncToken  = "sync.token"

	// ========================================================================
	// FS watcher attributes
	// ========================================================================
	AttrFSEventKind = "fswatch.kind" // created, modified, removed

	// ========================================================================
	// PTY attributes
	// ========================================================================
	AttrPTYSession = "pty.session_id"
	AttrPTYCols    = "pty.cols"
	AttrPTYRows    = "pty.rows"

	// ========================================================================
	// Run dispatcher attributes
	// ========================================================================
	AttrRunExtension = "run.extension"
	AttrRunCommand   = "run.command"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	SpanGatewayEvent    = "gateway.event"
	SpanGatewayConnect  = "gateway.connect"
	SpanRoomMutation    = "room.mutation"
	SpanRoomCreate      = "room.create"
	SpanRoomJoin        = "room.join"
	SpanSyncSuppress    = "sync.suppress"
	SpanFSWatchEmit     = "fswatch.emit"
	SpanPTYExec         = "pty.exec"
	SpanRunDispatch     = "run.dispatch"
	SpanRoomStoreQuery  = "rooms.query"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// RoomCode returns an attribute for a room code
func RoomCode(code string) attribute.KeyValue {
	return attribute.String(AttrRoomCode, code)
}

// UserID returns an attribute for a room member identifier
func UserID(id string) attribute.KeyValue {
	return attribute.String(AttrUserID, id)
}

// Username returns an attribute for a display name
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// MemberCount returns an attribute for a room's current member count
func MemberCount(n int) attribute.KeyValue {
	return attribute.Int(AttrMemberCount, n)
}

// Event returns an attribute for a wire protocol event name
func Event(name string) attribute.KeyValue {
	return attribute.String(AttrEvent, name)
}

// Operation returns an attribute for a file tree operation name
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// Path returns an attribute for a file or directory path
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

// OldPath returns an attribute for the source path in a rename/move
func OldPath(p string) attribute.KeyValue {
	return attribute.String(AttrOldPath, p)
}

// NewPath returns an attribute for the destination path in a rename/move
func NewPath(p string) attribute.KeyValue {
	return attribute.String(AttrNewPath, p)
}

// Kind returns an attribute for whether a node is a file or folder
func Kind(kind string) attribute.KeyValue {
	return attribute.String(AttrKind, kind)
}

// Size returns an attribute for a file size in bytes
func Size(size int) attribute.KeyValue {
	return attribute.Int(AttrSize, size)
}

// SyncOrigin returns an attribute for the origin of a change under
// suppression: editor, terminal, or a folder variant of either.
func SyncOrigin(origin string) attribute.KeyValue {
	return attribute.String(AttrSyncOrigin, origin)
}

// SyncToken returns an attribute for a sync arbiter suppression token
func SyncToken(token string) attribute.KeyValue {
	return attribute.String(AttrSyncToken, token)
}

// FSEventKind returns an attribute for a filesystem watcher event kind
func FSEventKind(kind string) attribute.KeyValue {
	return attribute.String(AttrFSEventKind, kind)
}

// PTYSession returns an attribute for a PTY session identifier
func PTYSession(id string) attribute.KeyValue {
	return attribute.String(AttrPTYSession, id)
}

// PTYSize returns attributes for a PTY's terminal dimensions
func PTYSize(cols, rows int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrPTYCols, cols),
		attribute.Int(AttrPTYRows, rows),
	}
}

// RunExtension returns an attribute for the file extension a run command
// was dispatched for
func RunExtension(ext string) attribute.KeyValue {
	return attribute.String(AttrRunExtension, ext)
}

// RunCommand returns an attribute for the resolved shell command line
func RunCommand(cmd string) attribute.KeyValue {
	return attribute.String(AttrRunCommand, cmd)
}

// StartGatewayEventSpan starts a span for one dispatched wire protocol
// event. Call this at the top of connection.dispatch.
func StartGatewayEventSpan(ctx context.Context, event string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Event(event)}, attrs...)
	return StartSpan(ctx, SpanGatewayEvent, trace.WithAttributes(allAttrs...))
}

// StartRoomMutationSpan starts a span for a file tree mutation applied
// inside a room's lock (create, delete, rename, move, toggle).
func StartRoomMutationSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Operation(operation)}, attrs...)
	return StartSpan(ctx, SpanRoomMutation, trace.WithAttributes(allAttrs...))
}

// StartPTYExecSpan starts a span for a command executed in a user's PTY.
func StartPTYExecSpan(ctx context.Context, sessionID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{PTYSession(sessionID)}, attrs...)
	return StartSpan(ctx, SpanPTYExec, trace.WithAttributes(allAttrs...))
}

// StartRoomStoreQuerySpan starts a span for a Room Store lookup (create,
// authenticate, touch).
func StartRoomStoreQuerySpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Operation(operation)}, attrs...)
	return StartSpan(ctx, SpanRoomStoreQuery, trace.WithAttributes(allAttrs...))
}
