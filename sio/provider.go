package sio

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/exertion"
	"github.com/mwsobol/SORCER-sub002/util"
)

// MQTTProvider serves the service types of a LocalExerter.
type MQTTProvider struct {
	Broker  Broker
	Prefix  string
	QoS     byte
	Exerter *exertion.LocalExerter

	// ContextOptions apply to the contexts of requests.
	ContextOptions []core.Option

	logger *zap.Logger

	mu     sync.Mutex
	topics []string
	wg     sync.WaitGroup
}

func NewMQTTProvider(b Broker, prefix string, ex *exertion.LocalExerter) *MQTTProvider {
	return &MQTTProvider{
		Broker:  b,
		Prefix:  prefix,
		Exerter: ex,
		logger:  util.Logger(),
	}
}

// Start subscribes to the exert topics.  Requests are served until
// Stop or until ctx is done.
func (p *MQTTProvider) Start(ctx context.Context) error {
	sts := p.Exerter.ServiceTypes()
	sort.Strings(sts)
	for _, st := range sts {
		topic := ExertTopic(p.Prefix, st)
		err := p.Broker.Subscribe(ctx, topic, p.QoS, func(topic string, payload []byte) {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.handle(ctx, topic, payload)
			}()
		})
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.topics = append(p.topics, topic)
		p.mu.Unlock()
		p.logger.Info("serving", zap.String("topic", topic))
	}
	return nil
}

func (p *MQTTProvider) handle(ctx context.Context, topic string, payload []byte) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		p.logger.Warn("bad request", zap.String("topic", topic), zap.Error(err))
		return
	}
	if req.ReplyTo == "" {
		p.logger.Warn("request without replyTo", zap.String("id", req.ID))
		return
	}

	r := Serve(ctx, p.Exerter, &req, p.ContextOptions...)
	js, err := json.Marshal(r)
	if err != nil {
		p.logger.Error("marshal reply", zap.String("id", req.ID), zap.Error(err))
		return
	}
	if err := p.Broker.Publish(ctx, req.ReplyTo, p.QoS, js); err != nil {
		p.logger.Error("publish reply", zap.String("id", req.ID), zap.Error(err))
	}
}

// Stop unsubscribes and waits for requests in progress.
func (p *MQTTProvider) Stop(ctx context.Context) error {
	p.mu.Lock()
	topics := p.topics
	p.topics = nil
	p.mu.Unlock()

	var err error
	if 0 < len(topics) {
		err = p.Broker.Unsubscribe(ctx, topics...)
	}
	p.wg.Wait()
	return err
}
