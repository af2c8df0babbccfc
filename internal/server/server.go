// Package server is the transport boundary: it upgrades websocket members,
// decodes inbound frames, routes them through the classifier, and kicks the
// trigger engine. All chat semantics live below it.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"squadchat/internal/classify"
	"squadchat/internal/hub"
	"squadchat/internal/logging"
	"squadchat/internal/provider"
	"squadchat/internal/room"
	"squadchat/internal/scribble"
	"squadchat/internal/trigger"
)

// Server holds the wired components behind the HTTP surface.
type Server struct {
	ctx        context.Context
	hub        *hub.Hub
	registry   *room.Registry
	classifier *classify.Classifier
	engine     *trigger.Engine
	director   *scribble.Director
	describer  provider.Describer
	upgrader   websocket.Upgrader
}

// New wires the HTTP surface. ctx bounds the background work spawned by
// inbound messages (trigger rounds, guess rounds); it outlives any single
// connection.
func New(ctx context.Context, h *hub.Hub, registry *room.Registry, classifier *classify.Classifier, engine *trigger.Engine, director *scribble.Director, describer provider.Describer) *Server {
	return &Server{
		ctx:        ctx,
		hub:        h,
		registry:   registry,
		classifier: classifier,
		engine:     engine,
		director:   director,
		describer:  describer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Rooms are joined by link from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the HTTP handler for the whole surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/{room}/{username}", s.handleWS)
	mux.HandleFunc("GET /status", s.handleStatus)
	return mux
}

// inbound is the client frame shape. Non-JSON frames degrade to a bare
// message body.
type inbound struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Image   string `json:"image"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomKey := r.PathValue("room")
	username := r.PathValue("username")
	if roomKey == "" || username == "" {
		http.Error(w, "room and username required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Info("server", "upgrade failed for %s/%s: %v", roomKey, username, err)
		return
	}

	rm := s.registry.Get(roomKey)
	client := s.hub.Join(roomKey, conn)
	logging.Info("server", "%s joined room %s", username, roomKey)

	// Replay recent conversation to the newcomer. Structured game payloads
	// are ephemeral and stay out of the replay.
	for _, t := range rm.History() {
		if classify.IsGameMessage(t.Body) {
			continue
		}
		client.Send(hub.NewMessage(roomKey, t.Sender, t.Body))
	}

	s.broadcast(roomKey, room.SystemSender, fmt.Sprintf("%s joined Room %s!", username, roomKey))

	for {
		raw, err := client.Read()
		if err != nil {
			break
		}
		var in inbound
		if jsonErr := json.Unmarshal(raw, &in); jsonErr != nil {
			in = inbound{Sender: username, Message: string(raw)}
		}
		s.dispatch(rm, username, in)
	}

	s.hub.Leave(client)
	logging.Info("server", "%s left room %s", username, roomKey)
	s.broadcast(roomKey, room.SystemSender, fmt.Sprintf("%s left.", username))
}

// dispatch routes one inbound message. Trigger rounds and guess rounds run
// on their own goroutines; the read loop never blocks on providers.
func (s *Server) dispatch(rm *room.Room, username string, in inbound) {
	if in.Image != "" {
		desc := s.describer.Describe(s.ctx, in.Image)
		rm.Append(username, desc)
		m := hub.NewMessage(rm.Key, username, desc)
		m.Image = in.Image
		s.hub.Broadcast(rm.Key, m)
		go s.engine.Trigger(s.ctx, rm, 0, false)
		return
	}

	ev := s.classifier.Classify(username, in.Message, false)
	if ev.Type == classify.GameUpdate && ev.Snapshot.Kind == room.KindScribble {
		s.dispatchScribble(rm, username, in.Message)
		return
	}

	switch {
	case ev.Malformed:
		// Relay for client sync; the sanitizer keeps it out of transcripts.
		rm.Append(username, in.Message)
		s.broadcast(rm.Key, username, in.Message)

	case ev.Type == classify.GameUpdate:
		rm.SetSnapshot(*ev.Snapshot)
		rm.Append(username, in.Message)
		s.broadcast(rm.Key, username, in.Message)
		if ev.Notable {
			go s.engine.Trigger(s.ctx, rm, 0, true)
		}

	default:
		rm.Append(username, in.Message)
		s.broadcast(rm.Key, username, in.Message)
		go s.engine.Trigger(s.ctx, rm, 0, false)
	}
}

// scribbleEvent is the decoded scribble payload. Fields beyond these stay
// opaque and ride along in the raw body.
type scribbleEvent struct {
	Event      string `json:"event"`
	Word       string `json:"word"`
	WordLength int    `json:"wordLength"`
	Hint       string `json:"hint"`
	Image      string `json:"image"`
	Guess      string `json:"guess"`
	Drawer     string `json:"drawer"`
}

// dispatchScribble handles drawing-game events. Most are control frames for
// the AI side; only round outcomes are re-broadcast to the room.
func (s *Server) dispatchScribble(rm *room.Room, username, body string) {
	var sd scribbleEvent
	if err := json.Unmarshal([]byte(body[len(scribble.Prefix):]), &sd); err != nil {
		logging.Debug("server", "bad scribble payload from %s: %v", username, err)
		return
	}

	switch sd.Event {
	case "game_start":
		rm.Append(username, "[SCRIBBLE started]")
		go s.engine.Trigger(s.ctx, rm, 0, true)

	case "user_draw_start":
		rm.SetSnapshot(room.GameSnapshot{
			Kind:      room.KindScribble,
			EventTag:  sd.Event,
			TurnOwner: username,
			Summary:   sd.Word,
		})
		rm.Append(username, fmt.Sprintf("[SCRIBBLE: %s drawing (%d letters)]", username, sd.WordLength))

	case "canvas_snapshot":
		if sd.Image != "" {
			go s.director.GuessRound(s.ctx, rm.Key, sd.Image, sd.Hint, sd.WordLength)
		}

	case "ai_draw_request":
		go s.director.DrawTurn(s.ctx, rm, sd.Drawer)

	case "user_guess":
		rm.Append(username, fmt.Sprintf("[SCRIBBLE: %s guessed %q]", username, sd.Guess))

	case "round_guessed", "round_timeout", "game_over":
		s.broadcast(rm.Key, username, body)
		rm.Append(username, fmt.Sprintf("[SCRIBBLE: %s]", sd.Event))
		if sd.Event == "game_over" {
			go s.engine.Trigger(s.ctx, rm, 0, true)
		}

	default:
		s.broadcast(rm.Key, username, body)
	}
}

func (s *Server) broadcast(roomKey, sender, body string) {
	s.hub.Broadcast(roomKey, hub.NewMessage(roomKey, sender, body))
}
