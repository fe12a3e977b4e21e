// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// textMessage is the JSON body of GET /api/text and of every WebSocket push.
type textMessage struct {
	Text string `json:"text"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// writeWait bounds a single WebSocket write; a client slower than this is dropped.
const writeWait = 2 * time.Second

// wsClient is one browser connection. Updates are queued on send and written
// by the client's own goroutine, so SetText never waits on the network.
type wsClient struct {
	conn *websocket.Conn
	send chan textMessage
}

// Web serves the readout to browsers: GET /api/text returns the current text
// and /ws pushes every update to connected WebSocket clients.
type Web struct {
	logger *zap.SugaredLogger
	router *mux.Router
	server *http.Server

	mu      sync.Mutex
	text    string
	haveAny bool
	clients map[*wsClient]struct{}
}

// NewWeb starts an HTTP server on addr serving the readout.
func NewWeb(addr string, logger *zap.SugaredLogger) (*Web, error) {
	w := newWeb(logger)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	w.server = &http.Server{Handler: w.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := w.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("display: web server error: %v", err)
		}
	}()
	logger.Infof("display: web server listening on %s", ln.Addr())
	return w, nil
}

func newWeb(logger *zap.SugaredLogger) *Web {
	w := &Web{
		logger:  logger,
		router:  mux.NewRouter(),
		clients: make(map[*wsClient]struct{}),
	}
	w.router.HandleFunc("/api/text", w.handleText).Methods(http.MethodGet)
	w.router.HandleFunc("/ws", w.handleWS)
	return w
}

// Handler exposes the routes, for mounting or testing.
func (w *Web) Handler() http.Handler { return w.router }

// SetText queues the update for every client. Only the newest pending update
// is kept per client.
func (w *Web) SetText(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.text = text
	w.haveAny = true

	msg := textMessage{Text: text}
	for c := range w.clients {
		queueLatest(c.send, msg)
	}
	return nil
}

func (w *Web) Text() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.text
}

// Close disconnects clients and stops the server, if one was started.
func (w *Web) Close() error {
	w.mu.Lock()
	for c := range w.clients {
		w.removeLocked(c)
	}
	w.mu.Unlock()

	if w.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return w.server.Shutdown(ctx)
}

func (w *Web) handleText(rw http.ResponseWriter, _ *http.Request) {
	w.mu.Lock()
	text, haveAny := w.text, w.haveAny
	w.mu.Unlock()

	if !haveAny {
		http.Error(rw, "no data yet", http.StatusServiceUnavailable)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(textMessage{Text: text}); err != nil {
		w.logger.Warnf("display: json encode error: %v", err)
	}
}

func (w *Web) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warnf("display: websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan textMessage, 1)}
	w.mu.Lock()
	if w.haveAny {
		c.send <- textMessage{Text: w.text}
	}
	w.clients[c] = struct{}{}
	w.mu.Unlock()

	go w.writeLoop(c)

	// Drain client frames until it goes away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				w.remove(c)
				return
			}
		}
	}()
}

func (w *Web) writeLoop(c *wsClient) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			w.logger.Debugf("display: dropping websocket client: %v", err)
			w.remove(c)
			return
		}
	}
}

func (w *Web) remove(c *wsClient) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeLocked(c)
}

func (w *Web) removeLocked(c *wsClient) {
	if _, ok := w.clients[c]; !ok {
		return
	}
	delete(w.clients, c)
	close(c.send)
	c.conn.Close()
}

// queueLatest puts msg on a one-slot channel, replacing any pending message.
func queueLatest(ch chan textMessage, msg textMessage) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
