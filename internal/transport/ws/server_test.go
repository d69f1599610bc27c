package ws

import (
	"encoding/json"
	stdlog "log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	oplog "campuslife.ai/internal/persistence/log"
	"campuslife.ai/internal/protocol"
	"campuslife.ai/internal/sim/campus"
	"campuslife.ai/internal/sim/campusdata"
	"campuslife.ai/internal/sim/scenario"
)

type memJournal struct {
	ops      []oplog.OpEntry
	bookings []campus.Booking
}

func (m *memJournal) WriteOp(e oplog.OpEntry) error { m.ops = append(m.ops, e); return nil }
func (m *memJournal) RecordBooking(seq uint64, b campus.Booking) {
	m.bookings = append(m.bookings, b)
}

func testWorld(t *testing.T) *campus.World {
	t.Helper()
	data := &campusdata.Data{
		Map: campusdata.MapData{
			Nodes: []campusdata.Node{
				{ID: "B001", Name: "Library", Zone: "Core", Type: "Library"},
				{ID: "B083", Name: "Dorm", Zone: "Residential", Type: "Dormitory"},
			},
			Edges: []campusdata.Edge{{Source: "B001", Target: "B083", TimeCost: 5}},
		},
		MapDigest:     "m",
		CoursesDigest: "c",
	}
	cfg, err := scenario.Load("")
	if err != nil {
		t.Fatal(err)
	}
	w, err := campus.New(cfg, data)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandshakeAndApply(t *testing.T) {
	jnl := &memJournal{}
	srv := NewServer(testWorld(t), jnl, nil, stdlog.New(os.Stdout, "[test] ", 0))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	if err := conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ControllerName:  "test-controller",
	}); err != nil {
		t.Fatal(err)
	}

	var welcome protocol.WelcomeMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.RunID != "run_1" {
		t.Fatalf("welcome = %+v", welcome)
	}
	if welcome.WorldParams.DefaultLocationID != "B083" || welcome.WorldParams.Time != "08:00" {
		t.Fatalf("world params = %+v", welcome.WorldParams)
	}
	if len(welcome.Operations) == 0 {
		t.Fatal("welcome lists no operations")
	}

	if err := conn.WriteJSON(protocol.OpMsg{
		Type:            protocol.TypeOp,
		ProtocolVersion: protocol.Version,
		Seq:             1,
		Op:              campus.OpGetWorldTime,
		Args:            json.RawMessage(`{}`),
	}); err != nil {
		t.Fatal(err)
	}
	var res protocol.ResultMsg
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if res.Seq != 1 || !res.Result.IsSuccess() {
		t.Fatalf("result = %+v", res)
	}

	// Failures come back as results too, with the world untouched.
	if err := conn.WriteJSON(protocol.OpMsg{
		Type:            protocol.TypeOp,
		ProtocolVersion: protocol.Version,
		Seq:             2,
		Op:              "no_such_op",
	}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatal(err)
	}
	if res.Result.IsSuccess() || res.Result.ErrorCode != protocol.ErrValidation {
		t.Fatalf("result = %+v", res)
	}

	if len(jnl.ops) != 2 {
		t.Fatalf("journaled %d ops", len(jnl.ops))
	}
	if jnl.ops[1].Status != protocol.StatusFailure || jnl.ops[1].ErrorCode != protocol.ErrValidation {
		t.Fatalf("journal entry = %+v", jnl.ops[1])
	}
}

func TestSecondControllerRejected(t *testing.T) {
	srv := NewServer(testWorld(t), nil, nil, stdlog.New(os.Stdout, "[test] ", 0))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	first := dial(t, ts.URL)
	if err := first.WriteJSON(protocol.HelloMsg{
		Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ControllerName: "one",
	}); err != nil {
		t.Fatal(err)
	}
	var welcome protocol.WelcomeMsg
	_ = first.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := first.ReadJSON(&welcome); err != nil {
		t.Fatal(err)
	}

	second := dial(t, ts.URL)
	_ = second.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Fatal("second controller was not closed")
	}
}

func TestHandshakeRejectsBadVersion(t *testing.T) {
	srv := NewServer(testWorld(t), nil, nil, stdlog.New(os.Stdout, "[test] ", 0))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	if err := conn.WriteJSON(protocol.HelloMsg{
		Type: protocol.TypeHello, ProtocolVersion: "0.9", ControllerName: "old",
	}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection with bad protocol_version was not closed")
	}
}
