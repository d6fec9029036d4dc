package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cterence/uartemu/internal/log"
	"github.com/gorilla/websocket"
)

const (
	WEBSOCKET_PATH = "/uart"

	WEBSOCKET_SEND_QUEUE = 1024
	WEBSOCKET_WRITE_WAIT = time.Second
)

var ErrSendQueueFull = errors.New("websocket send queue full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Websocket exposes the UART to remote clients. Binary or text messages from
// any client feed the receiver, transmitted bytes are broadcast to every
// client as single-byte binary messages.
type Websocket struct {
	*ChanSource

	in chan uint8

	// closed by Close, releases read pumps stuck on a full receive buffer
	done chan struct{}

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool

	server *http.Server
}

type wsClient struct {
	conn *websocket.Conn
	send chan []uint8
}

func NewWebsocket() *Websocket {
	in := make(chan uint8, PUMP_BUFFER)

	return &Websocket{
		ChanSource: NewChanSource(in),
		in:         in,
		done:       make(chan struct{}),
		clients:    map[*wsClient]struct{}{},
	}
}

// ListenWebsocket serves the endpoint on addr until ctx is done or Close is called.
func ListenWebsocket(ctx context.Context, addr string) (*Websocket, error) {
	ws := NewWebsocket()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(WEBSOCKET_PATH, ws)

	ws.server = &http.Server{
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := ws.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("[endpoint] websocket server stopped: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()

		if err := ws.Close(); err != nil {
			log.Debug("[endpoint] websocket close: %v", err)
		}
	}()

	log.Debug("[endpoint] websocket listening on ws://%s%s", ln.Addr(), WEBSOCKET_PATH)

	return ws, nil
}

func (ws *Websocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("[endpoint] websocket upgrade failed: %v", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan []uint8, WEBSOCKET_SEND_QUEUE),
	}

	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		conn.Close()

		return
	}
	ws.clients[c] = struct{}{}
	ws.mu.Unlock()

	log.Debug("[endpoint] websocket client connected: %s", r.RemoteAddr)

	go ws.writePump(c)
	ws.readPump(c)
}

func (ws *Websocket) readPump(c *wsClient) {
	defer ws.unregister(c)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		for _, b := range message {
			select {
			case ws.in <- b:
			case <-ws.done:
				return
			}
		}
	}
}

func (ws *Websocket) writePump(c *wsClient) {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(WEBSOCKET_WRITE_WAIT)); err != nil {
			return
		}

		if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
			return
		}
	}

	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (ws *Websocket) unregister(c *wsClient) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if _, ok := ws.clients[c]; ok {
		delete(ws.clients, c)
		close(c.send)
	}
}

// Put broadcasts b without blocking. Clients that cannot keep up lose the byte.
func (ws *Websocket) Put(b uint8) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	var err error

	for c := range ws.clients {
		select {
		case c.send <- []uint8{b}:
		default:
			err = ErrSendQueueFull
		}
	}

	return err
}

func (ws *Websocket) Clients() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	return len(ws.clients)
}

func (ws *Websocket) Close() error {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return nil
	}

	ws.closed = true
	close(ws.done)

	for c := range ws.clients {
		delete(ws.clients, c)
		close(c.send)
	}
	ws.mu.Unlock()

	if ws.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	return ws.server.Shutdown(ctx)
}
