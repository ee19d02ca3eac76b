// Package sink implements one concrete Sink transport for the Live
// Fan-out Hub: a gorilla/websocket hub exposing a push/pull protocol
// (on_channel_created/on_channel_closed/on_service_created pushed to the
// client; subscribe/unsubscribe/advertise/unadvertise/publish/service-call
// pulled from client frames).
//
// Built around the familiar Hub/Client/register/unregister/broadcast/
// readPump/writePump websocket structure, wired to internal/hub.Hub
// instead of broadcasting arbitrary stats payloads.
package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/flowmesh/foxbridge/internal/hub"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is the wire envelope for every message exchanged with the
// visualization client, in both directions.
type Frame struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Variant   string          `json:"variant,omitempty"`
	TypeName  string          `json:"type_name,omitempty"`
	Service   string          `json:"service,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Text      string          `json:"text,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Hub is the websocket transport: one instance per fox_bridge process,
// bound to the core Live Fan-out Hub it pushes channel/service events from
// and pulls subscribe/publish/service-call frames into.
type Hub struct {
	core *hub.Hub
	log  zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
}

type outbound struct {
	frame Frame
}

// NewHub constructs a sink Hub bound to the core Hub. Call Run to start its
// event loop and WireCore to attach the push callbacks.
func NewHub(core *hub.Hub, log zerolog.Logger) *Hub {
	return &Hub{
		core:       core,
		log:        log,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
	}
}

// WireCore attaches this Hub's push methods as the core Hub's
// OnChannelCreated/OnChannelClosed/OnServiceCreated callbacks.
func (h *Hub) WireCore() {
	h.core.OnChannelCreated = h.pushChannelCreated
	h.core.OnChannelClosed = h.pushChannelClosed
	h.core.OnServiceCreated = h.pushServiceCreated
}

func (h *Hub) pushChannelCreated(topic, schemaName string, descriptorBytes []byte) {
	h.broadcastAll(Frame{
		Type:     "channel_created",
		Topic:    topic,
		TypeName: schemaName,
		Payload:  rawBytes(descriptorBytes),
	})
}

func (h *Hub) pushChannelClosed(topic string) {
	h.broadcastAll(Frame{Type: "channel_closed", Topic: topic})
}

func (h *Hub) pushServiceCreated(name, requestSchemaText, responseSchemaText string) {
	payload, _ := json.Marshal(map[string]string{
		"request_schema":  requestSchemaText,
		"response_schema": responseSchemaText,
	})
	h.broadcastAll(Frame{Type: "service_created", Service: name, Payload: payload})
}

func rawBytes(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	encoded, err := json.Marshal(b)
	if err != nil {
		return nil
	}
	return encoded
}

func (h *Hub) broadcastAll(f Frame) {
	select {
	case h.broadcast <- outbound{frame: f}:
	default:
		h.log.Warn().Str("type", f.Type).Msg("sink: broadcast channel full, dropping control frame")
	}
}

// Run drives the Hub's register/unregister/broadcast loop until ctx is
// cancelled. Broadcast frames (channel_created/channel_closed/
// service_created) go to every connected client — per-topic message
// delivery bypasses this loop entirely and writes straight to the
// subscribing Client's send channel (see Client.subscribe), so one slow
// client can never stall another's live messages.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*Client]struct{})
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case out := <-h.broadcast:
			data, err := json.Marshal(out.frame)
			if err != nil {
				h.log.Error().Err(err).Msg("sink: failed to marshal frame")
				continue
			}
			var stale []*Client
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					stale = append(stale, c)
				}
			}
			h.mu.RUnlock()
			if len(stale) > 0 {
				h.mu.Lock()
				for _, c := range stale {
					if _, ok := h.clients[c]; ok {
						delete(h.clients, c)
						close(c.send)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// ServeHTTP upgrades the connection and spawns the client's read/write
// pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("sink: failed to upgrade connection")
		return
	}

	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		subs: make(map[subKey]string),
		log:  h.log,
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}
