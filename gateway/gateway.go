// Package gateway exposes the character over a websocket: user messages in,
// talk and expression events out.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Controller is the engine surface the gateway drives.
type Controller interface {
	OnUserTurn(ctx context.Context, text string)
}

// Inbound is a client-to-character frame.
type Inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Outbound is a character-to-client frame.
type Outbound struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Expression string `json:"expression,omitempty"`
}

const writeTimeout = 10 * time.Second

// Gateway runs the websocket endpoint as a background service and fans out
// spoken output to every connected client.
type Gateway struct {
	controller Controller
	logger     zerolog.Logger
	server     *http.Server
	upgrader   websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	done  chan struct{}
}

func New(addr string, controller Controller, logger zerolog.Logger) *Gateway {
	g := &Gateway{
		controller: controller,
		logger:     logger.With().Str("component", "gateway").Logger(),
		conns:      make(map[*websocket.Conn]struct{}),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			// Local desktop front end; no cross-origin story yet.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS)
	g.server = &http.Server{Addr: addr, Handler: mux}
	return g
}

// Start serves until Shutdown, satisfying the service lifecycle.
func (g *Gateway) Start(ctx context.Context) error {
	defer close(g.done)
	g.logger.Info().Str("addr", g.server.Addr).Msg("gateway listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	err := g.server.Shutdown(ctx)
	select {
	case <-g.done:
	case <-ctx.Done():
	}
	return err
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	g.mu.Lock()
	g.conns[conn] = struct{}{}
	g.mu.Unlock()
	g.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")

	defer func() {
		g.mu.Lock()
		delete(g.conns, conn)
		g.mu.Unlock()
		conn.Close()
		g.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("client disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			g.logger.Warn().Err(err).Msg("undecodable frame, dropping")
			continue
		}

		switch in.Type {
		case "user_message":
			if in.Text == "" {
				continue
			}
			g.controller.OnUserTurn(r.Context(), in.Text)
		default:
			g.logger.Warn().Str("type", in.Type).Msg("unknown frame type, dropping")
		}
	}
}

// Speak broadcasts one spoken line with the current expression. It plugs in
// as the engine's speaker callback.
func (g *Gateway) Speak(talk, expression string) {
	g.broadcast(Outbound{Type: "talk", Text: talk, Expression: expression})
}

func (g *Gateway) broadcast(out Outbound) {
	data, err := json.Marshal(out)
	if err != nil {
		g.logger.Error().Err(err).Msg("marshal outbound frame")
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for conn := range g.conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			g.logger.Warn().Err(err).Msg("write failed, dropping client")
			conn.Close()
			delete(g.conns, conn)
		}
	}
}
