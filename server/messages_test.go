package server

import (
	"math"
	"testing"
)

func TestParseClientMessageCoercesMissingFields(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"input","input":{"up":true}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if msg.Type != MsgTypeInput || msg.Input == nil {
		t.Fatalf("unexpected message %+v", msg)
	}
	// 缺省字段一律按 false 处理
	if !msg.Input.Up || msg.Input.Down || msg.Input.Left || msg.Input.Right {
		t.Fatalf("missing booleans must coerce to false, got %+v", *msg.Input)
	}
}

func TestParseClientMessageMalformed(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{nope`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestHandleMessagePingEchoesTimestamp(t *testing.T) {
	w := newTestWorld()
	conn := newTestConn()
	p, _ := w.Join(conn, "")

	w.handleMessage(conn, p.ID, []byte(`{"type":"ping","ts":12345}`))

	msgs := drainConn(conn)
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one pong, got %d messages", len(msgs))
	}
	m := decodeMsg(t, msgs[0])
	if m["type"] != MsgTypePong || m["ts"] != float64(12345) {
		t.Fatalf("unexpected pong %v", m)
	}
}

func TestHandleMessageUnknownTypeIgnored(t *testing.T) {
	w := newTestWorld()
	conn := newTestConn()
	p, _ := w.Join(conn, "")
	x, y := p.X, p.Y

	w.handleMessage(conn, p.ID, []byte(`{"type":"teleport","x":1,"y":1}`))

	if len(drainConn(conn)) != 0 {
		t.Fatalf("unknown type must produce no reply")
	}
	if p.X != x || p.Y != y || w.Count() != 1 {
		t.Fatalf("unknown type must not touch entity state")
	}
}

func TestHandleMessageMalformedKeepsSession(t *testing.T) {
	w := newTestWorld()
	conn := newTestConn()
	p, _ := w.Join(conn, "")

	w.handleMessage(conn, p.ID, []byte(`not json at all`))
	if w.Count() != 1 {
		t.Fatalf("malformed message must not drop the session")
	}

	// 后续消息照常生效
	w.handleMessage(conn, p.ID, []byte(`{"type":"input","input":{"down":true}}`))
	if p.Input != (InputState{Down: true}) {
		t.Fatalf("input after malformed message not applied: %+v", p.Input)
	}
}

func TestHandleMessageInputWithoutPayloadMeansIdle(t *testing.T) {
	w := newTestWorld()
	conn := newTestConn()
	p, _ := w.Join(conn, "")
	w.ApplyInput(p.ID, InputState{Right: true})

	w.handleMessage(conn, p.ID, []byte(`{"type":"input"}`))
	if p.Input != (InputState{}) {
		t.Fatalf("absent input payload must overwrite to idle, got %+v", p.Input)
	}
}

func TestSnapshotEnvelopeShape(t *testing.T) {
	w := newTestWorld()
	conn := newTestConn()
	p, _ := w.Join(conn, "")
	p.X, p.Y = 123.6, 45.2
	p.VX, p.VY = 12.7, -0.4

	w.BroadcastSnapshot()

	msgs := drainConn(conn)
	if len(msgs) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(msgs))
	}
	m := decodeMsg(t, msgs[0])
	if m["type"] != MsgTypeSnapshot {
		t.Fatalf("envelope type = %v", m["type"])
	}
	if ts, ok := m["ts"].(float64); !ok || ts <= 0 {
		t.Fatalf("missing or bad ts: %v", m["ts"])
	}
	players, ok := m["players"].([]any)
	if !ok || len(players) != 1 {
		t.Fatalf("players = %v", m["players"])
	}

	entry := players[0].(map[string]any)
	if entry["id"] != string(p.ID) || entry["color"] != p.Color {
		t.Fatalf("unexpected entry %v", entry)
	}
	// 坐标与速度取整
	for key, want := range map[string]float64{"x": 124, "y": 45, "vx": 13, "vy": 0} {
		got, ok := entry[key].(float64)
		if !ok || math.Mod(got, 1) != 0 || got != want {
			t.Fatalf("field %s = %v, want integral %v", key, entry[key], want)
		}
	}
}
