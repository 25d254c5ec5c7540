package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "coderoom", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("RoomCode", func(t *testing.T) {
		attr := RoomCode("AB12CD")
		assert.Equal(t, AttrRoomCode, string(attr.Key))
		assert.Equal(t, "AB12CD", attr.Value.AsString())
	})

	t.Run("UserID", func(t *testing.T) {
		attr := UserID("user-1")
		assert.Equal(t, AttrUserID, string(attr.Key))
		assert.Equal(t, "user-1", attr.Value.AsString())
	})

	t.Run("Username", func(t *testing.T) {
		attr := Username("alice")
		assert.Equal(t, AttrUsername, string(attr.Key))
		assert.Equal(t, "alice", attr.Value.AsString())
	})

	t.Run("MemberCount", func(t *testing.T) {
		attr := MemberCount(3)
		assert.Equal(t, AttrMemberCount, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("Event", func(t *testing.T) {
		attr := Event("create-room")
		assert.Equal(t, AttrEvent, string(attr.Key))
		assert.Equal(t, "create-room", attr.Value.AsString())
	})

	t.Run("Operation", func(t *testing.T) {
		attr := Operation("rename")
		assert.Equal(t, AttrOperation, string(attr.Key))
		assert.Equal(t, "rename", attr.Value.AsString())
	})

	t.Run("Path", func(t *testing.T) {
		attr := Path("src/main.go")
		assert.Equal(t, AttrPath, string(attr.Key))
		assert.Equal(t, "src/main.go", attr.Value.AsString())
	})

	t.Run("OldPath", func(t *testing.T) {
		attr := OldPath("old.go")
		assert.Equal(t, AttrOldPath, string(attr.Key))
		assert.Equal(t, "old.go", attr.Value.AsString())
	})

	t.Run("NewPath", func(t *testing.T) {
		attr := NewPath("new.go")
		assert.Equal(t, AttrNewPath, string(attr.Key))
		assert.Equal(t, "new.go", attr.Value.AsString())
	})

	t.Run("Kind", func(t *testing.T) {
		attr := Kind("folder")
		assert.Equal(t, AttrKind, string(attr.Key))
		assert.Equal(t, "folder", attr.Value.AsString())
	})

	t.Run("Size", func(t *testing.T) {
		attr := Size(1024)
		assert.Equal(t, AttrSize, string(attr.Key))
		assert.Equal(t, int64(1024), attr.Value.AsInt64())
	})

	t.Run("SyncOrigin", func(t *testing.T) {
		attr := SyncOrigin("editor")
		assert.Equal(t, AttrSyncOrigin, string(attr.Key))
		assert.Equal(t, "editor", attr.Value.AsString())
	})

	t.Run("SyncToken", func(t *testing.T) {
		attr := SyncToken("tok-123")
		assert.Equal(t, AttrSyncToken, string(attr.Key))
		assert.Equal(t, "tok-123", attr.Value.AsString())
	})

	t.Run("FSEventKind", func(t *testing.T) {
		attr := FSEventKind("modified")
		assert.Equal(t, AttrFSEventKind, string(attr.Key))
		assert.Equal(t, "modified", attr.Value.AsString())
	})

	t.Run("PTYSession", func(t *testing.T) {
		attr := PTYSession("sess-1")
		assert.Equal(t, AttrPTYSession, string(attr.Key))
		assert.Equal(t, "sess-1", attr.Value.AsString())
	})

	t.Run("PTYSize", func(t *testing.T) {
		attrs := PTYSize(80, 24)
		require.Len(t, attrs, 2)
		assert.Equal(t, AttrPTYCols, string(attrs[0].Key))
		assert.Equal(t, int64(80), attrs[0].Value.AsInt64())
		assert.Equal(t, AttrPTYRows, string(attrs[1].Key))
		assert.Equal(t, int64(24), attrs[1].Value.AsInt64())
	})

	t.Run("RunExtension", func(t *testing.T) {
		attr := RunExtension("py")
		assert.Equal(t, AttrRunExtension, string(attr.Key))
		assert.Equal(t, "py", attr.Value.AsString())
	})

	t.Run("RunCommand", func(t *testing.T) {
		attr := RunCommand("python main.py")
		assert.Equal(t, AttrRunCommand, string(attr.Key))
		assert.Equal(t, "python main.py", attr.Value.AsString())
	})
}

func TestStartGatewayEventSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartGatewayEventSpan(ctx, "create-room")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartGatewayEventSpan(ctx, "code-change", RoomCode("AB12CD"), UserID("user-1"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartRoomMutationSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartRoomMutationSpan(ctx, "create-file", Path("main.go"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartPTYExecSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartPTYExecSpan(ctx, "sess-1", RunCommand("python main.py"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartRoomStoreQuerySpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartRoomStoreQuerySpan(ctx, "authenticate", RoomCode("AB12CD"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
