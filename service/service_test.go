package service

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/exertion"
	"github.com/mwsobol/SORCER-sub002/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestImpl(t *testing.T) {
	var _ storage.ContextManagement = &Client{}
	var _ exertion.Exerter = &Client{}
}

func arith() *exertion.LocalExerter {
	e := exertion.NewLocalExerter()
	e.Register("Arithmetic", "multiply", func(ctx context.Context, c *core.ServiceContext) error {
		vs, err := c.InValues()
		if err != nil {
			return err
		}
		if len(vs) != 2 {
			return errors.New("want two inputs")
		}
		return c.PutOutValue("result/y", vs[0].(float64)*vs[1].(float64))
	})
	return e
}

func serve(t *testing.T) (*Client, *storage.Memory, string) {
	mem := storage.NewMemory()
	ts := httptest.NewServer(NewServer(mem, arith()))
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		ts.Close()
	})
	return c, mem, url
}

func TestContexts(t *testing.T) {
	c, mem, _ := serve(t)
	ctx := context.Background()

	sc := core.NewServiceContext("simpsons")
	require.NoError(t, sc.PutInValue("homer/likes", "donuts"))
	require.NoError(t, c.SaveContext(ctx, "simpsons", sc))

	// The server stored it.
	got, err := mem.GetContext(ctx, "simpsons")
	require.NoError(t, err)
	assert.Equal(t, sc.ID(), got.ID())

	got, err = c.GetContext(ctx, "simpsons")
	require.NoError(t, err)
	v, err := got.GetValue("homer/likes")
	require.NoError(t, err)
	assert.Equal(t, "donuts", v)
	assert.Equal(t, []string{"homer/likes"}, got.InPaths())

	names, err := c.ContextNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"simpsons"}, names)

	require.NoError(t, c.DeleteContext(ctx, "simpsons"))
	_, err = c.GetContext(ctx, "simpsons")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, c.DeleteContext(ctx, "simpsons"), storage.ErrNotFound)
}

func TestRemoteLinks(t *testing.T) {
	c, _, _ := serve(t)
	ctx := context.Background()

	args := core.NewServiceContext("args")
	require.NoError(t, args.PutValue("arg/x1", 6.0))
	require.NoError(t, c.SaveContext(ctx, "args", args))

	sc := core.NewServiceContext("linked")
	require.NoError(t, sc.PutLink("in", args, "arg"))
	require.NoError(t, storage.SaveMethodContext(ctx, c, "Arithmetic", "multiply", sc))

	got, err := storage.GetMethodContext(ctx, c, "Arithmetic", "multiply")
	require.NoError(t, err)
	// The link's target is fetched through the client.
	x, err := got.GetValue("in/arg/x1")
	require.NoError(t, err)
	assert.Equal(t, 6.0, x)
}

func TestExert(t *testing.T) {
	c, _, _ := serve(t)
	ctx := context.Background()

	sc := core.NewServiceContext("multiply")
	sc.PutInValue("arg/x1", 6.0)
	sc.PutInValue("arg/x2", 7.0)
	task := exertion.NewTask("t", sc, exertion.Sig("multiply", "Arithmetic"))

	m, err := c.Exert(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, exertion.Done, m.Status())
	y, err := m.Context().GetValue("result/y")
	require.NoError(t, err)
	assert.Equal(t, 42.0, y)

	task = exertion.NewTask("t", sc, exertion.Sig("divide", "Arithmetic"))
	m, err = c.Exert(ctx, task)
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Msg, "no provider")
	assert.Equal(t, exertion.Failed, m.Status())
}

func TestBadOps(t *testing.T) {
	_, _, url := serve(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Contains(t, resp.Err, "can't parse")

	require.NoError(t, conn.WriteJSON(&Op{ID: "empty"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "empty", resp.ID)
	assert.Equal(t, "no operation", resp.Err)
}

func TestDo(t *testing.T) {
	s := NewServer(storage.NewMemory(), nil)
	resp := s.Do(context.Background(), &Op{Exert: &ExertOp{}})
	assert.Equal(t, "no exerter", resp.Err)

	resp = s.Do(context.Background(), &Op{GetContext: &NameOp{Name: "x"}})
	assert.True(t, resp.NotFound)
}
