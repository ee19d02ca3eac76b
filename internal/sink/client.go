package sink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/flowmesh/foxbridge/internal/hub"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// subKey identifies one (topic, variant) subscription a Client holds, so
// an unsubscribe frame can look up the subscriber id the core Hub issued.
type subKey struct {
	topic   string
	variant hub.Variant
}

// Client is one connected visualization client. It pulls
// subscribe/unsubscribe/advertise/unadvertise/publish/service-call frames
// and, for each active subscription, receives canonical bytes directly
// from the core Hub via its own callback — never through the broadcast
// loop, so a lagging client only ever drops its own messages.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  zerolog.Logger

	mu   sync.Mutex
	subs map[subKey]string // (topic, variant) -> subscriber id from OnExternalSubscribe
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.cleanupSubscriptions()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug().Err(err).Msg("sink: websocket read error")
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Debug().Err(err).Msg("sink: malformed client frame")
			continue
		}
		c.handle(f)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) reply(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn().Str("type", f.Type).Msg("sink: client send buffer full, dropping reply")
	}
}

func (c *Client) handle(f Frame) {
	switch f.Type {
	case "subscribe":
		c.subscribe(f)
	case "unsubscribe":
		c.unsubscribe(f)
	case "advertise":
		c.advertise(f)
	case "unadvertise":
		c.unadvertise(f)
	case "publish":
		c.publish(f)
	case "service_call":
		c.serviceCall(f)
	case "get_parameters", "set_parameters":
		// The bus's parameter primitive is transport-internal; no Bus
		// method exists to fulfill these.
		c.reply(Frame{Type: "error", RequestID: f.RequestID, Text: "parameters are not supported by this bridge"})
	default:
		c.log.Debug().Str("type", f.Type).Msg("sink: unrecognized frame type")
	}
}

func (c *Client) variant(f Frame) hub.Variant {
	if f.Variant == string(hub.VariantConverted) {
		return hub.VariantConverted
	}
	return hub.VariantRaw
}

func (c *Client) subscribe(f Frame) {
	variant := c.variant(f)
	key := subKey{topic: f.Topic, variant: variant}

	c.mu.Lock()
	if _, already := c.subs[key]; already {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	subID, err := c.hub.core.OnExternalSubscribe(f.Topic, variant, c.deliver)
	if err != nil {
		c.reply(Frame{Type: "error", RequestID: f.RequestID, Topic: f.Topic, Text: err.Error()})
		return
	}

	c.mu.Lock()
	c.subs[key] = subID
	c.mu.Unlock()
}

func (c *Client) unsubscribe(f Frame) {
	variant := c.variant(f)
	key := subKey{topic: f.Topic, variant: variant}

	c.mu.Lock()
	subID, ok := c.subs[key]
	if ok {
		delete(c.subs, key)
	}
	c.mu.Unlock()
	if !ok {
		c.reply(Frame{Type: "error", RequestID: f.RequestID, Topic: f.Topic, Text: "not subscribed"})
		return
	}

	if err := c.hub.core.OnExternalUnsubscribe(f.Topic, variant, subID); err != nil {
		c.reply(Frame{Type: "error", RequestID: f.RequestID, Topic: f.Topic, Text: err.Error()})
	}
}

func (c *Client) advertise(f Frame) {
	if err := c.hub.core.OnExternalAdvertise(f.Topic, f.TypeName); err != nil {
		c.reply(Frame{Type: "error", RequestID: f.RequestID, Topic: f.Topic, Text: err.Error()})
	}
}

func (c *Client) unadvertise(f Frame) {
	if err := c.hub.core.OnExternalUnadvertise(f.Topic); err != nil {
		c.reply(Frame{Type: "error", RequestID: f.RequestID, Topic: f.Topic, Text: err.Error()})
	}
}

func (c *Client) publish(f Frame) {
	if err := c.hub.core.OnExternalPublish(f.Topic, f.Text); err != nil {
		c.reply(Frame{Type: "error", RequestID: f.RequestID, Topic: f.Topic, Text: err.Error()})
	}
}

func (c *Client) serviceCall(f Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	respText, err := c.hub.core.OnServiceCall(ctx, f.Service, f.Text)
	if err != nil {
		c.reply(Frame{Type: "error", RequestID: f.RequestID, Service: f.Service, Text: err.Error()})
		return
	}
	c.reply(Frame{Type: "service_response", RequestID: f.RequestID, Service: f.Service, Text: respText})
}

// deliver is registered as this Client's SinkCallback for every active
// subscription; it writes straight to the Client's own send channel.
func (c *Client) deliver(topic string, variant hub.Variant, canonicalBytes []byte) {
	data, err := json.Marshal(Frame{
		Type:    "message",
		Topic:   topic,
		Variant: string(variant),
		Payload: rawBytes(canonicalBytes),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn().Str("topic", topic).Msg("sink: client send buffer full, dropping message")
	}
}

func (c *Client) cleanupSubscriptions() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[subKey]string)
	c.mu.Unlock()

	for key, subID := range subs {
		c.hub.core.OnExternalUnsubscribe(key.topic, key.variant, subID)
	}
}
