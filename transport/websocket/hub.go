package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/marsrover/logger"
	"github.com/wricardo/mcp-training/marsrover/mission/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxInboundSize = 512

	// Queue sizes. A subscriber whose outbox fills up is disconnected.
	outboundQueue = 256
	outboxSize    = 64
)

// Events sent to subscribers
const (
	EventSnapshot    = "snapshot"
	EventStateUpdate = "state_update"
	EventDeployed    = "rover_deployed"
	EventSkipped     = "rover_skipped"
	EventExecuted    = "mission_executed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is one frame pushed to subscribers of a session. Seq increases by
// one per message within a session so clients can spot dropped frames.
type Message struct {
	SessionID    string               `json:"session_id"`
	Seq          uint64               `json:"seq"`
	Event        string               `json:"event"`
	MissionState *engine.MissionState `json:"mission_state,omitempty"`
	Data         interface{}          `json:"data,omitempty"`
	SentAt       time.Time            `json:"sent_at"`
}

// Subscriber is one WebSocket connection following a session
type Subscriber struct {
	hub       *Hub
	conn      *websocket.Conn
	outbox    chan []byte
	sessionID string
}

// room holds the subscribers of one session
type room struct {
	members map[*Subscriber]struct{}
	seq     uint64
}

// Hub fans mission events out to the subscribers of each session. All
// membership changes and deliveries happen on the Run goroutine.
type Hub struct {
	rooms map[string]*room
	mu    sync.RWMutex

	outbound chan *Message
	joins    chan *Subscriber
	leaves   chan *Subscriber

	done chan struct{}
	once sync.Once
	log  logger.Logger
}

// NewHub creates a hub. A nil logger discards hub logs.
func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		rooms:    make(map[string]*room),
		outbound: make(chan *Message, outboundQueue),
		joins:    make(chan *Subscriber),
		leaves:   make(chan *Subscriber),
		done:     make(chan struct{}),
		log:      log,
	}
}

// Run processes joins, leaves and broadcasts until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.joins:
			h.join(sub)
		case sub := <-h.leaves:
			h.leave(sub)
		case msg := <-h.outbound:
			h.deliver(msg)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends the Run loop and disconnects every subscriber
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// ServeWS upgrades the request and subscribes the connection to sessionID.
// When snapshot is non-nil it is the first frame the subscriber receives.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, snapshot *engine.MissionState) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	sub := &Subscriber{
		hub:       h,
		conn:      conn,
		outbox:    make(chan []byte, outboxSize),
		sessionID: sessionID,
	}
	if snapshot != nil {
		data, err := json.Marshal(&Message{
			SessionID:    sessionID,
			Event:        EventSnapshot,
			MissionState: snapshot,
			SentAt:       time.Now().UTC(),
		})
		if err == nil {
			sub.outbox <- data
		}
	}

	select {
	case h.joins <- sub:
	case <-h.done:
		conn.Close()
		return
	}

	go sub.writeLoop()
	go sub.readLoop()
}

// BroadcastToSession pushes a full mission state to a session's subscribers
func (h *Hub) BroadcastToSession(sessionID string, state *engine.MissionState) {
	h.publish(&Message{SessionID: sessionID, Event: EventStateUpdate, MissionState: state})
}

// BroadcastEvent pushes an event with an arbitrary payload to a session's
// subscribers
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.publish(&Message{SessionID: sessionID, Event: event, Data: data})
}

// publish queues msg for the Run loop. It never blocks: when the queue is
// full the message is dropped and logged.
func (h *Hub) publish(msg *Message) {
	select {
	case h.outbound <- msg:
	default:
		h.log.Warnf("broadcast queue full, dropping %s for session %s", msg.Event, msg.SessionID)
	}
}

// SubscriberCount returns the number of connections following a session
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if rm, ok := h.rooms[sessionID]; ok {
		return len(rm.members)
	}
	return 0
}

func (h *Hub) join(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[sub.sessionID]
	if !ok {
		rm = &room{members: make(map[*Subscriber]struct{})}
		h.rooms[sub.sessionID] = rm
	}
	rm.members[sub] = struct{}{}
	h.log.Debugf("subscriber joined session %s (%d connected)", sub.sessionID, len(rm.members))
}

func (h *Hub) leave(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(sub)
}

// drop expects mu to be held. Dropping a subscriber twice is a no-op.
func (h *Hub) drop(sub *Subscriber) {
	rm, ok := h.rooms[sub.sessionID]
	if !ok {
		return
	}
	if _, member := rm.members[sub]; !member {
		return
	}
	delete(rm.members, sub)
	close(sub.outbox)

	if len(rm.members) == 0 {
		delete(h.rooms, sub.sessionID)
	}
	h.log.Debugf("subscriber left session %s (%d connected)", sub.sessionID, len(rm.members))
}

// deliver stamps msg with the room's next sequence number and hands it to
// every member. Rooms with no subscribers are skipped without consuming a
// sequence number.
func (h *Hub) deliver(msg *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[msg.SessionID]
	if !ok {
		return
	}
	rm.seq++
	msg.Seq = rm.seq
	msg.SentAt = time.Now().UTC()

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Errorf("failed to encode %s for session %s: %v", msg.Event, msg.SessionID, err)
		return
	}

	for sub := range rm.members {
		select {
		case sub.outbox <- data:
		default:
			h.log.Warnf("subscriber of session %s is too slow, disconnecting", msg.SessionID)
			h.drop(sub)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, rm := range h.rooms {
		for sub := range rm.members {
			h.drop(sub)
		}
	}
}

// readLoop discards inbound frames; reading keeps pong deadlines moving and
// notices when the peer goes away.
func (s *Subscriber) readLoop() {
	defer func() {
		select {
		case s.hub.leaves <- s:
		case <-s.hub.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxInboundSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.hub.log.Warnf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// writeLoop sends one JSON message per frame and pings the peer while idle
func (s *Subscriber) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.outbox:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
