// Package ws exposes the world to the task controller over a websocket. The
// transport is deliberately thin: it decodes structured OP messages, applies
// them in arrival order, and writes the matching RESULT. All interpretation
// lives in the sim.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	oplog "campuslife.ai/internal/persistence/log"
	"campuslife.ai/internal/protocol"
	"campuslife.ai/internal/sim/campus"
)

// Journal is the subset of the sqlite journal the transport needs.
type Journal interface {
	WriteOp(entry oplog.OpEntry) error
	RecordBooking(seq uint64, b campus.Booking)
}

type Server struct {
	world *campus.World
	log   *log.Logger

	journal Journal
	ops     *oplog.OpLogger

	upgrader websocket.Upgrader

	// One controller at a time; operations are strictly sequential.
	active atomic.Bool
	mu     sync.Mutex

	snapCh    chan<- SnapshotRequest
	snapEvery uint64
}

// SnapshotRequest carries an exported state to the snapshot writer.
type SnapshotRequest struct {
	State      campus.StateV1
	AppliedOps uint64
}

func NewServer(w *campus.World, journal Journal, ops *oplog.OpLogger, logger *log.Logger) *Server {
	return &Server{
		world:   w,
		log:     logger,
		journal: journal,
		ops:     ops,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// SetSnapshotSink arranges for the state to be exported to ch after every
// everyOps successfully applied operations. Exports happen under the op lock,
// so the state is always consistent; the writer drains ch asynchronously.
func (s *Server) SetSnapshotSink(ch chan<- SnapshotRequest, everyOps uint64) {
	s.snapCh = ch
	s.snapEvery = everyOps
}

// ExportState returns a consistent copy of the world state for out-of-band
// snapshots (shutdown, admin trigger).
func (s *Server) ExportState() SnapshotRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SnapshotRequest{State: s.world.Export(), AppliedOps: s.world.AppliedOps()}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.active.CompareAndSwap(false, true) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "controller already connected"),
				time.Now().Add(time.Second))
			return
		}
		defer s.active.Store(false)

		name, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.log.Printf("controller %q connected", name)
		defer s.log.Printf("controller %q disconnected", name)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeOp {
				continue
			}
			var op protocol.OpMsg
			if err := json.Unmarshal(msg, &op); err != nil {
				continue
			}
			if op.ProtocolVersion != protocol.Version {
				continue
			}

			res := s.apply(op)
			if err := writeJSON(conn, protocol.ResultMsg{
				Type:            protocol.TypeResult,
				ProtocolVersion: protocol.Version,
				Seq:             op.Seq,
				Result:          res,
			}); err != nil {
				return
			}
		}
	}
}

func (s *Server) apply(op protocol.OpMsg) protocol.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.world.Apply(op.Op, op.Args)

	entry := oplog.OpEntry{
		Seq:       op.Seq,
		Op:        op.Op,
		Args:      op.Args,
		Status:    res.Status,
		ErrorCode: res.ErrorCode,
		Message:   res.Message,
		Digest:    s.world.Digest(),
		LoggedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if s.ops != nil {
		if err := s.ops.WriteOp(entry); err != nil {
			s.log.Printf("op log write failed: %v", err)
		}
	}
	if s.journal != nil {
		_ = s.journal.WriteOp(entry)
		if res.IsSuccess() && op.Op == campus.OpMakeBooking {
			if bs := s.world.Bookings(); len(bs) > 0 {
				s.journal.RecordBooking(op.Seq, bs[len(bs)-1])
			}
		}
	}
	if s.snapCh != nil && s.snapEvery > 0 && res.IsSuccess() {
		if applied := s.world.AppliedOps(); applied%s.snapEvery == 0 {
			select {
			case s.snapCh <- SnapshotRequest{State: s.world.Export(), AppliedOps: applied}:
			default:
			}
		}
	}
	return res
}

func (s *Server) handshake(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"),
			time.Now().Add(time.Second))
		return "", false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"),
			time.Now().Add(time.Second))
		return "", false
	}
	if hello.ControllerName == "" {
		hello.ControllerName = "controller"
	}

	cfg := s.world.Config()
	data := s.world.Data()
	clock := s.world.Clock()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		RunID:           cfg.RunID,
		WorldParams: protocol.WorldParams{
			Seed:              cfg.Seed,
			DefaultLocationID: cfg.DefaultLocationID,
			Week:              clock.Week,
			Day:               clock.Day,
			Time:              clock.TimeOfDay(),
		},
		Catalogs: protocol.DataDigests{
			MapDigest:      data.MapDigest,
			CoursesDigest:  data.CoursesDigest,
			ScenarioDigest: cfg.Digest,
		},
		Operations: campus.OperationNames(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	return hello.ControllerName, true
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
