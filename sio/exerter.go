package sio

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/exertion"
	"github.com/mwsobol/SORCER-sub002/util"
)

// MQTTExerter exerts tasks with remote providers.
type MQTTExerter struct {
	Broker Broker
	Prefix string
	QoS    byte

	// Timeout, if positive, bounds the wait for a reply.
	Timeout time.Duration

	// ContextOptions apply to the contexts of replies.
	ContextOptions []core.Option

	logger *zap.Logger
}

func NewMQTTExerter(b Broker, prefix string) *MQTTExerter {
	return &MQTTExerter{
		Broker: b,
		Prefix: prefix,
		logger: util.Logger(),
	}
}

func (e *MQTTExerter) fail(t *exertion.Task, err error) (exertion.Mogram, error) {
	t.ReportException("remote exert", err)
	t.SetStatus(exertion.Failed)
	e.logger.Warn("remote exert failed",
		zap.String("mogram", t.Name()),
		zap.Error(err))
	return t, err
}

// Exert implements exertion.Exerter.  Only a Task can travel.
func (e *MQTTExerter) Exert(ctx context.Context, m exertion.Mogram) (exertion.Mogram, error) {
	t, is := m.(*exertion.Task)
	if !is {
		return m, &exertion.MogramError{Mogram: m, Msg: "only tasks can be exerted remotely"}
	}
	sig, err := t.Process()
	if err != nil {
		return m, &exertion.RoutineError{Mogram: t, Msg: "no process signature"}
	}

	if 0 < e.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	id := uuid.NewString()
	replyTo := ReplyTopic(e.Prefix, id)
	replies := make(chan []byte, 1)
	err = e.Broker.Subscribe(ctx, replyTo, e.QoS, func(topic string, payload []byte) {
		select {
		case replies <- payload:
		default:
		}
	})
	if err != nil {
		return e.fail(t, err)
	}
	defer func() {
		if err := e.Broker.Unsubscribe(context.Background(), replyTo); err != nil {
			e.logger.Warn("unsubscribe", zap.String("topic", replyTo), zap.Error(err))
		}
	}()

	js, err := json.Marshal(t)
	if err != nil {
		return e.fail(t, err)
	}
	req, err := json.Marshal(&Request{
		ID:      id,
		ReplyTo: replyTo,
		Task:    js,
	})
	if err != nil {
		return e.fail(t, err)
	}

	t.SetStatus(exertion.Running)
	topic := ExertTopic(e.Prefix, sig.ServiceType)
	e.logger.Debug("publishing",
		zap.String("topic", topic),
		zap.String("id", id))
	if err := e.Broker.Publish(ctx, topic, e.QoS, req); err != nil {
		return e.fail(t, err)
	}

	var payload []byte
	select {
	case <-ctx.Done():
		return e.fail(t, ctx.Err())
	case payload = <-replies:
	}

	var r Reply
	if err := json.Unmarshal(payload, &r); err != nil {
		return e.fail(t, err)
	}
	if r.Task != nil {
		if err := Absorb(t, r.Task, e.ContextOptions...); err != nil {
			return e.fail(t, err)
		}
	}
	if r.Err != "" {
		return e.fail(t, &RemoteError{ID: id, Msg: r.Err})
	}
	return t, nil
}
