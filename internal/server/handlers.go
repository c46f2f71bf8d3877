package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"rams/internal/game"
	"rams/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

var errUnknownAction = errors.New("unknown action")

type Handler struct {
	Manager     *game.Manager
	Broadcaster *game.Broadcaster
	Log         logrus.FieldLogger
}

func NewHandler(m *game.Manager, b *game.Broadcaster, log logrus.FieldLogger) *Handler {
	return &Handler{Manager: m, Broadcaster: b, Log: log}
}

// Routes mounts the websocket, the JSON endpoints and, when staticDir is set,
// the client files.
func (h *Handler) Routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/state", h.State)
	mux.HandleFunc("/stats", h.Stats)
	mux.HandleFunc("/ws", h.HandleGameWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Manager.View())
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Manager.Stats(r.Context())
	if err != nil {
		h.Log.WithError(err).Warn("stats query failed")
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) HandleGameWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	session := uuid.NewString()
	log := h.Log.WithField("session", session)
	ctx, cancel := context.WithCancel(context.Background())

	h.Broadcaster.Add(session, ws)
	defer func() {
		cancel()
		h.Broadcaster.Remove(session)
		ws.Close()
	}()

	h.Broadcaster.Send(session, model.Message{Type: "identity", Payload: map[string]string{"session": session}})
	h.Broadcaster.Send(session, model.Message{Type: "state", Payload: h.Manager.View()})
	go h.runBots(ctx, log)

	for {
		var action model.Action
		if err := ws.ReadJSON(&action); err != nil {
			break
		}
		log.WithField("action", action.Type).Debug("received")

		if err := h.dispatch(ctx, session, log, action); err != nil {
			h.sendError(session, err)
			continue
		}
		go h.runBots(ctx, log)
	}
}

func (h *Handler) dispatch(ctx context.Context, session string, log logrus.FieldLogger, a model.Action) error {
	m := h.Manager
	switch a.Type {
	case "start":
		return m.Start()
	case "bet":
		return m.PlaceBet(a.Value)
	case "declare":
		rule := a.Payload
		if rule == "" {
			rule = game.RuleJacks
		}
		return m.Declare(rule)
	case "fold":
		return m.Fold()
	case "advance":
		return m.Advance()
	case "play_card":
		return m.PlayCard(int(a.Value))
	case "replay":
		return m.Replay()
	case "reset":
		return m.Reset()
	case "set_sound":
		m.SetSound(a.Value != 0)
		return nil
	case "set_volume":
		v, err := strconv.ParseFloat(a.Payload, 64)
		if err != nil {
			return fmt.Errorf("volume %q: %w", a.Payload, err)
		}
		return m.SetVolume(v)
	case "state":
		return h.Broadcaster.Send(session, model.Message{Type: "state", Payload: m.View()})
	case "stats":
		stats, err := m.Stats(ctx)
		if err != nil {
			return err
		}
		return h.Broadcaster.Send(session, model.Message{Type: "stats", Payload: stats})
	case "connect_wallet", "deposit", "withdraw":
		// transfers take seconds; keep reading intents meanwhile
		go func() {
			if err := h.walletAction(ctx, a); err != nil {
				log.WithError(err).WithField("action", a.Type).Info("wallet action failed")
				h.sendError(session, err)
			}
		}()
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, a.Type)
	}
}

func (h *Handler) walletAction(ctx context.Context, a model.Action) error {
	switch a.Type {
	case "connect_wallet":
		return h.Manager.ConnectWallet(ctx, a.Payload)
	case "deposit":
		return h.Manager.Deposit(ctx, a.Value)
	default:
		return h.Manager.Withdraw(ctx, a.Value)
	}
}

func (h *Handler) runBots(ctx context.Context, log logrus.FieldLogger) {
	if err := h.Manager.RunBots(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("bot loop stopped")
	}
}

func (h *Handler) sendError(session string, err error) {
	if werr := h.Broadcaster.Send(session, model.Message{Type: "error", Payload: err.Error()}); werr != nil {
		h.Log.WithError(werr).WithField("session", session).Debug("could not report error")
	}
}
