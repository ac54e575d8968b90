package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// observer adapts one gorilla connection to the hub's Observer contract.
// Gorilla permits a single concurrent writer, so sends serialize on a mutex.
type observer struct {
	id   string
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newObserver(id string, conn *websocket.Conn) *observer {
	return &observer{id: id, conn: conn}
}

func (o *observer) ID() string { return o.id }

func (o *observer) Send(ctx context.Context, payload []byte) error {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}
	if err := o.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return o.conn.WriteMessage(websocket.TextMessage, payload)
}

func (o *observer) Close() error {
	o.closeOnce.Do(func() {
		o.closeErr = o.conn.Close()
	})
	return o.closeErr
}
