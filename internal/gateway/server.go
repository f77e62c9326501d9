// Package gateway is the HTTP surface of the bot: the webhook endpoint
// the WhatsApp provider posts deliveries to, a health probe, and a
// WebSocket feed of routing events for operational dashboards.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/snapxhq/snapbot/internal/bus"
)

// Bus is what the gateway needs from the message bus.
type Bus interface {
	bus.MessageRouter
	bus.EventPublisher
}

// Server serves /webhook, /health and /ws.
type Server struct {
	bus       Bus
	limiter   *WebhookRateLimiter
	ownNumber string

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

// New creates a gateway server. ownNumber is the instance's WhatsApp id;
// deliveries from it are the bot's own echoes and get dropped.
func New(b Bus, ownNumber string, limiter *WebhookRateLimiter) *Server {
	if limiter == nil {
		limiter = NewWebhookRateLimiter()
	}
	return &Server{
		bus:       b,
		limiter:   limiter,
		ownNumber: ownNumber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is operational telemetry on a trusted network,
			// not a user surface.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*websocket.Conn),
	}
}

// BuildMux wires the HTTP routes.
func (s *Server) BuildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.BuildMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// webhookNotification is the provider's delivery envelope. Only the
// fields the bot reads are declared.
type webhookNotification struct {
	TypeWebhook string `json:"typeWebhook"`
	IDMessage   string `json:"idMessage"`
	SenderData  struct {
		ChatID     string `json:"chatId"`
		Sender     string `json:"sender"`
		SenderName string `json:"senderName"`
		ChatName   string `json:"chatName"`
	} `json:"senderData"`
	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
		ExtendedTextMessageData struct {
			Text string `json:"text"`
		} `json:"extendedTextMessageData"`
	} `json:"messageData"`
}

func (n *webhookNotification) text() string {
	switch n.MessageData.TypeMessage {
	case "textMessage":
		return n.MessageData.TextMessageData.TextMessage
	case "extendedTextMessage":
		return n.MessageData.ExtendedTextMessageData.Text
	}
	return ""
}

// handleWebhook accepts a provider delivery. It always answers 200 so
// the provider never retries into a failure loop; drops are recorded as
// events instead.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	var note webhookNotification
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		slog.Warn("webhook decode failed", "error", err)
		return
	}

	if note.TypeWebhook != "incomingMessageReceived" {
		return
	}
	text := note.text()
	if text == "" {
		return
	}
	if s.ownNumber != "" && samePeer(note.SenderData.Sender, s.ownNumber) {
		// Our own outbound message echoed back.
		return
	}

	if !s.limiter.Allow(note.SenderData.ChatID) {
		slog.Warn("webhook rate limited", "chat", note.SenderData.ChatID)
		s.bus.Broadcast(bus.Event{Name: bus.EventDropped, Payload: map[string]string{
			"chat_id": note.SenderData.ChatID,
			"reason":  "rate_limited",
		}})
		return
	}

	msg := bus.InboundMessage{
		DeliveryID: note.IDMessage,
		ChatID:     note.SenderData.ChatID,
		SenderID:   note.SenderData.Sender,
		SenderName: note.SenderData.SenderName,
		ChatName:   note.SenderData.ChatName,
		Content:    text,
	}
	s.bus.PublishInbound(msg)
	s.bus.Broadcast(bus.Event{Name: bus.EventRouted, Payload: map[string]string{
		"chat_id":     msg.ChatID,
		"delivery_id": msg.DeliveryID,
	}})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleWS streams routing events to a dashboard client until it hangs
// up.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.clients[id] = conn
	s.mu.Unlock()

	s.bus.Subscribe(id, func(ev bus.Event) {
		s.mu.Lock()
		c, ok := s.clients[id]
		s.mu.Unlock()
		if !ok {
			return
		}
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteJSON(ev); err != nil {
			slog.Debug("websocket write failed", "client", id, "error", err)
		}
	})

	// Drain reads to notice the close handshake.
	go func() {
		defer s.dropClient(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) dropClient(id string) {
	s.bus.Unsubscribe(id)
	s.mu.Lock()
	conn, ok := s.clients[id]
	delete(s.clients, id)
	s.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// samePeer compares two chat ids by their numeric part.
func samePeer(a, b string) bool {
	return digitsOf(a) != "" && digitsOf(a) == digitsOf(b)
}

func digitsOf(s string) string {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "@c.us"), "@g.us")
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
