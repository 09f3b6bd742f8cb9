package sio

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/exertion"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memBroker delivers messages to exact-topic subscribers.
type memBroker struct {
	mu   sync.Mutex
	subs map[string]Handler
	wg   sync.WaitGroup
}

func newMemBroker() *memBroker {
	return &memBroker{
		subs: make(map[string]Handler),
	}
}

func (b *memBroker) Publish(ctx context.Context, topic string, qos byte, payload []byte) error {
	b.mu.Lock()
	h, have := b.subs[topic]
	b.mu.Unlock()
	if have {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			h(topic, payload)
		}()
	}
	return nil
}

func (b *memBroker) Subscribe(ctx context.Context, topic string, qos byte, h Handler) error {
	b.mu.Lock()
	b.subs[topic] = h
	b.mu.Unlock()
	return nil
}

func (b *memBroker) Unsubscribe(ctx context.Context, topics ...string) error {
	b.mu.Lock()
	for _, topic := range topics {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
	return nil
}

func (b *memBroker) topics() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func arith() *exertion.LocalExerter {
	e := exertion.NewLocalExerter()
	e.Register("Arithmetic", "add", func(ctx context.Context, c *core.ServiceContext) error {
		vs, err := c.InValues()
		if err != nil {
			return err
		}
		if len(vs) != 2 {
			return errors.New("want two inputs")
		}
		return c.PutOutValue("result/y", vs[0].(float64)+vs[1].(float64))
	})
	return e
}

func task(x1, x2 float64, sig *exertion.Signature) *exertion.Task {
	c := core.NewServiceContext("add")
	c.PutInValue("arg/x1", x1)
	c.PutInValue("arg/x2", x2)
	return exertion.NewTask("t", c, sig)
}

func serving(t *testing.T) (*memBroker, *MQTTExerter) {
	b := newMemBroker()
	ctx, cancel := context.WithCancel(context.Background())
	p := NewMQTTProvider(b, "sorcer", arith())
	require.NoError(t, p.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, p.Stop(ctx))
		cancel()
		b.wg.Wait()
	})

	e := NewMQTTExerter(b, "sorcer")
	e.Timeout = 5 * time.Second
	return b, e
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "p/exert/Arithmetic", ExertTopic("p", "Arithmetic"))
	assert.Equal(t, "p/reply/42", ReplyTopic("p", "42"))
}

func TestRemoteExert(t *testing.T) {
	b, e := serving(t)

	tk := task(20, 22, exertion.Sig("add", "Arithmetic"))
	m, err := e.Exert(context.Background(), tk)
	require.NoError(t, err)
	assert.Equal(t, exertion.Done, m.Status())

	y, err := m.Context().GetValue("result/y")
	require.NoError(t, err)
	assert.Equal(t, 42.0, y)
	assert.Equal(t, []string{"result/y"}, m.Context().OutPaths())

	// Only the provider's subscription remains.
	assert.Equal(t, 1, b.topics())
}

func TestRemoteFailure(t *testing.T) {
	_, e := serving(t)

	tk := task(1, 2, exertion.Sig("divide", "Arithmetic"))
	m, err := e.Exert(context.Background(), tk)
	require.Error(t, err)
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Msg, "no provider")
	assert.Equal(t, exertion.Failed, m.Status())
	assert.NotEmpty(t, m.Exceptions())
}

func TestRemoteTimeout(t *testing.T) {
	// Nobody serves this service type.
	e := NewMQTTExerter(newMemBroker(), "sorcer")
	e.Timeout = 20 * time.Millisecond

	m, err := e.Exert(context.Background(), task(1, 2, exertion.Sig("add", "Nobody")))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, exertion.Failed, m.Status())
}

func TestRemoteJob(t *testing.T) {
	e := NewMQTTExerter(newMemBroker(), "sorcer")
	j := exertion.NewJob("j", core.NewServiceContext("j"))
	_, err := e.Exert(context.Background(), j)
	var me *exertion.MogramError
	assert.True(t, errors.As(err, &me))
}

func TestServe(t *testing.T) {
	js, err := json.Marshal(task(3, 4, exertion.Sig("add", "Arithmetic")))
	require.NoError(t, err)

	r := Serve(context.Background(), arith(), &Request{ID: "r1", Task: js})
	assert.Equal(t, "r1", r.ID)
	assert.Empty(t, r.Err)

	got := task(0, 0, exertion.Sig("add", "Arithmetic"))
	require.NoError(t, Absorb(got, r.Task))
	y, err := got.Context().GetValue("result/y")
	require.NoError(t, err)
	assert.Equal(t, 7.0, y)

	r = Serve(context.Background(), arith(), &Request{ID: "r2", Task: []byte(`"junk"`)})
	assert.NotEmpty(t, r.Err)
	assert.Nil(t, r.Task)
}

func TestBadRequestsIgnored(t *testing.T) {
	b, e := serving(t)
	require.NoError(t, b.Publish(context.Background(), ExertTopic("sorcer", "Arithmetic"), 0, []byte("not json")))
	require.NoError(t, b.Publish(context.Background(), ExertTopic("sorcer", "Arithmetic"), 0, []byte(`{"id":"x"}`)))

	// The provider still works.
	_, err := e.Exert(context.Background(), task(1, 1, exertion.Sig("add", "Arithmetic")))
	require.NoError(t, err)
}
