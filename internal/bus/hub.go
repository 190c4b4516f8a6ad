// Package bus is the websocket broadcast hub: the connection/room
// registry and the fan-out primitives every other package uses to push
// state to clients (spec §6). Adapted from the teacher's
// internal/socketsvc/ws/ws.go — same sync.Map-based connMap/roomMap
// shape, generalized from WebRTC room routing to per-user targeting and
// global broadcast.
package bus

import (
	"sync"

	"github.com/avvvet/marketday/internal/comm"
	"github.com/avvvet/marketday/internal/models"
	"github.com/avvvet/marketday/internal/natsbridge"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Conn is one authenticated socket, tagged with the claims it
// handshook with.
type Conn struct {
	Socket *websocket.Conn
	UserID int64
	Role   models.Role
	mu     sync.Mutex
}

func (c *Conn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Socket.WriteJSON(v)
}

type Hub struct {
	conns sync.Map // socketID -> *Conn
	byUser sync.Map // userID -> sync.Map[socketID]struct{}
	bridge *natsbridge.Bridge
	log    *logrus.Entry
}

func NewHub(bridge *natsbridge.Bridge, log *logrus.Entry) *Hub {
	return &Hub{bridge: bridge, log: log}
}

// Register adds a new authenticated connection and indexes it by user,
// mirroring the teacher's StoreConnection/StoreRoom pair.
func (h *Hub) Register(socketID string, conn *Conn) {
	h.conns.Store(socketID, conn)

	sockets, _ := h.byUser.LoadOrStore(conn.UserID, &sync.Map{})
	sockets.(*sync.Map).Store(socketID, struct{}{})
}

func (h *Hub) Unregister(socketID string) {
	v, ok := h.conns.LoadAndDelete(socketID)
	if !ok {
		return
	}
	conn := v.(*Conn)
	if sockets, ok := h.byUser.Load(conn.UserID); ok {
		sockets.(*sync.Map).Delete(socketID)
	}
}

func (h *Hub) ConnCount() int {
	n := 0
	h.conns.Range(func(_, _ interface{}) bool { n++; return true })
	return n
}

// BroadcastGlobal fans a message out to every connected socket, and
// side-publishes it to the NATS "market.events" subject for external
// collaborators (dashboards/monitors) per SPEC_FULL.md §4.6.
func (h *Hub) BroadcastGlobal(msg *comm.WSMessage) {
	h.conns.Range(func(_, v interface{}) bool {
		conn := v.(*Conn)
		if err := conn.writeJSON(msg); err != nil {
			h.log.WithError(err).Debug("bus: broadcast write failed")
		}
		return true
	})
	h.bridge.Publish(msg)
}

// SendToUser targets every socket a specific user currently has open
// (they may have more than one tab), per spec §6 "the owning user's
// rooms".
func (h *Hub) SendToUser(userID int64, msg *comm.WSMessage) {
	sockets, ok := h.byUser.Load(userID)
	if !ok {
		return
	}
	sockets.(*sync.Map).Range(func(k, _ interface{}) bool {
		if v, ok := h.conns.Load(k.(string)); ok {
			conn := v.(*Conn)
			if err := conn.writeJSON(msg); err != nil {
				h.log.WithError(err).Debug("bus: unicast write failed")
			}
		}
		return true
	})
	h.bridge.Publish(msg)
}

// KickUser sends FORCE_LOGOUT to every socket a user has open and then
// force-closes them, used by the admin "kick" action (spec §6
// "FORCE_LOGOUT ... as their names suggest").
func (h *Hub) KickUser(userID int64) {
	sockets, ok := h.byUser.Load(userID)
	if !ok {
		return
	}
	msg := comm.NewMessage(comm.EventForceLogout, nil)
	var ids []string
	sockets.(*sync.Map).Range(func(k, _ interface{}) bool {
		ids = append(ids, k.(string))
		return true
	})
	for _, id := range ids {
		if v, ok := h.conns.Load(id); ok {
			conn := v.(*Conn)
			_ = conn.writeJSON(msg)
			_ = conn.Socket.Close()
		}
		h.Unregister(id)
	}
}

// SendToSocket targets exactly one connection, used for request/response
// style replies (TRADE_SUCCESS/TRADE_ERROR) that shouldn't fan out to a
// user's other open tabs.
func (h *Hub) SendToSocket(socketID string, msg *comm.WSMessage) {
	v, ok := h.conns.Load(socketID)
	if !ok {
		return
	}
	conn := v.(*Conn)
	if err := conn.writeJSON(msg); err != nil {
		h.log.WithError(err).Debug("bus: direct write failed")
	}
}
