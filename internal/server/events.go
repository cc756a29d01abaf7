package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"clipstream/internal/bus"
	"clipstream/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Tokens gate access; the API is same-host or reverse-proxied, so
	// origin checking adds nothing here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleEvents upgrades the connection to a websocket and forwards bus
// events for the requester's tenant room, plus a single item topic when
// the "item" query parameter names an item the tenant owns. Events missed
// before the upgrade are gone; clients reconcile through
// GET /api/videos/{id}.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromRequest(r)

	// Resolve the pinned item before upgrading so a cross-tenant or
	// unknown id is silently ignored rather than leaking another
	// tenant's events.
	pinnedItem := ""
	if itemID := r.URL.Query().Get("item"); itemID != "" {
		if _, err := s.store.GetByID(r.Context(), itemID, tenant); err == nil {
			pinnedItem = itemID
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := s.hub.Subscribe(bus.TenantTopic(tenant))
	defer cancel()

	var itemEvents <-chan bus.Event
	if pinnedItem != "" {
		var itemCancel func()
		itemEvents, itemCancel = s.hub.Subscribe(bus.ItemTopic(pinnedItem))
		defer itemCancel()
	}

	// The read loop exists only to notice the peer going away.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	logger := s.logger.With(logging.String(logging.FieldTenant, tenant))
	logger.Debug("event subscriber connected")

	for {
		select {
		case <-disconnected:
			logger.Debug("event subscriber disconnected")
			return
		case <-pinger.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			// The pipeline mirrors item events into the tenant room;
			// the pinned item's copies arrive on itemEvents instead.
			if pinnedItem != "" && event.VideoID == pinnedItem {
				continue
			}
			if !s.writeEvent(conn, event) {
				return
			}
		case event, ok := <-itemEvents:
			if !ok {
				return
			}
			if !s.writeEvent(conn, event) {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, event bus.Event) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		s.logger.Debug("event write failed", logging.Error(err))
		return false
	}
	return true
}
