package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-quiz/internal/compose"
	"github.com/p-n-ai/pai-quiz/internal/workflow"
)

const (
	subscriberBuffer = 32
	writeTimeout     = 5 * time.Second
)

// Message types pushed to websocket subscribers.
const (
	MessageCompose = "compose"
	MessageStage   = "stage"
)

// Message is one websocket frame.
type Message struct {
	Type    string          `json:"type"`
	Compose *compose.Event  `json:"compose,omitempty"`
	Stage   *workflow.Stage `json:"stage,omitempty"`
}

// Hub fans messages out to the websocket connections of each session.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Message]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Message]struct{})}
}

// Subscribe registers a listener for topic. The channel is closed when the
// returned cancel func runs or the topic is closed.
func (h *Hub) Subscribe(topic string) (<-chan Message, func()) {
	ch := make(chan Message, subscriberBuffer)

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan Message]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[topic][ch]; ok {
			delete(h.subs[topic], ch)
			close(ch)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
		}
	}
}

// Publish delivers msg to every subscriber of topic. Slow subscribers lose
// messages rather than block the publisher.
func (h *Hub) Publish(topic string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[topic] {
		select {
		case ch <- msg:
		default:
			slog.Warn("dropping websocket message for slow subscriber", "type", msg.Type)
		}
	}
}

// CloseTopic disconnects every subscriber of topic.
func (h *Hub) CloseTopic(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[topic] {
		close(ch)
	}
	delete(h.subs, topic)
}

func (s *Server) publishStage(ws *workspace) {
	stage := ws.wf.Stage()
	s.hub.Publish(ws.session.Token, Message{Type: MessageStage, Stage: &stage})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, ws *workspace) {
	msgs, cancel := s.hub.Subscribe(ws.session.Token)
	defer cancel()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	slog.Debug("websocket subscribed", "workspace_id", ws.id)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			if err := writeMessage(ctx, conn, msg); err != nil {
				slog.Debug("websocket write failed", "workspace_id", ws.id, "error", err)
				return
			}
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
