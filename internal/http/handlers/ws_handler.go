package handlers

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/crowdfund/backend/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const allCampaigns = -1

// WSHub relays campaign change events to websocket clients so open detail
// views know when to re-fetch. Clients may pass ?pId=N to follow one campaign.
type WSHub struct {
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[*websocket.Conn]int64
}

func NewWSHub(subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		subscriber:  subscriber,
		log:         log,
		connections: make(map[*websocket.Conn]int64),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.CampaignStream, h.broadcast)
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	pid, hasPID := eventPID(event)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, follow := range h.connections {
		if follow != allCampaigns && hasPID && follow != pid {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}

func eventPID(event events.Event) (int64, bool) {
	switch v := event.Payload["pId"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	follow := int64(allCampaigns)
	if s := conn.Query("pId"); s != "" {
		pid, err := strconv.ParseInt(s, 10, 64)
		if err != nil || pid < 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid pId"}`))
			conn.Close()
			return
		}
		follow = pid
	}

	h.mu.Lock()
	h.connections[conn] = follow
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.connections, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// read loop keeps the connection open and answers pings
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
