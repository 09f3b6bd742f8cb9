package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/exertion"
	"github.com/mwsobol/SORCER-sub002/sio"
	"github.com/mwsobol/SORCER-sub002/storage"
)

// Client is a storage.ContextManagement and an exertion.Exerter
// backed by a Server.
//
// Operations are serialized on the one connection.
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Dial connects to the Server at the URL, which is usually
// "ws://host:port/path".
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteMessage(websocket.CloseMessage, msg)
	return c.conn.Close()
}

// RemoteError is an error reported by the Server.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string {
	return e.Msg
}

func (c *Client) do(ctx context.Context, op *Op) (*Response, error) {
	op.ID = uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()

	if d, have := ctx.Deadline(); have {
		c.conn.SetWriteDeadline(d)
		c.conn.SetReadDeadline(d)
		defer c.conn.SetWriteDeadline(noDeadline)
		defer c.conn.SetReadDeadline(noDeadline)
	}

	if err := c.conn.WriteJSON(op); err != nil {
		return nil, err
	}
	var resp Response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, err
	}
	if resp.ID != op.ID {
		return nil, errors.New("response out of order")
	}
	if resp.Err != "" {
		var err error = &RemoteError{Msg: resp.Err}
		if resp.NotFound {
			err = storage.ErrNotFound
		}
		return &resp, err
	}
	return &resp, nil
}

func (c *Client) GetContext(ctx context.Context, name string) (*core.ServiceContext, error) {
	resp, err := c.do(ctx, &Op{GetContext: &NameOp{Name: name}})
	if err != nil {
		return nil, err
	}
	return storage.Decode(resp.Context, c)
}

func (c *Client) SaveContext(ctx context.Context, name string, sc *core.ServiceContext) error {
	js, err := storage.Encode(sc)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, &Op{SaveContext: &SaveOp{Name: name, Context: js}})
	return err
}

func (c *Client) DeleteContext(ctx context.Context, name string) error {
	_, err := c.do(ctx, &Op{DeleteContext: &NameOp{Name: name}})
	return err
}

func (c *Client) ContextNames(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, &Op{ContextNames: &struct{}{}})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// Exert implements exertion.Exerter.  Only a Task can travel.
func (c *Client) Exert(ctx context.Context, m exertion.Mogram) (exertion.Mogram, error) {
	t, is := m.(*exertion.Task)
	if !is {
		return m, &exertion.MogramError{Mogram: m, Msg: "only tasks can be exerted remotely"}
	}
	js, err := json.Marshal(t)
	if err != nil {
		return m, err
	}
	resp, err := c.do(ctx, &Op{Exert: &ExertOp{Task: js}})
	if resp != nil && resp.Task != nil {
		if aerr := sio.Absorb(t, resp.Task, core.WithAccessor(storage.Accessor(c))); aerr != nil && err == nil {
			err = aerr
		}
	}
	if err != nil {
		t.ReportException("remote exert", err)
		t.SetStatus(exertion.Failed)
		return t, err
	}
	return t, nil
}

var noDeadline = time.Time{}
