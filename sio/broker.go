/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package sio couples exertions to an MQTT broker.
//
// An MQTTExerter publishes a task to "<prefix>/exert/<serviceType>"
// and waits for the reply on a topic of its own.  An MQTTProvider
// subscribes to the exert topics of a LocalExerter's service types
// and replies with the exerted task.
package sio

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/mwsobol/SORCER-sub002/util"
)

// Handler receives a message on a subscribed topic.
type Handler func(topic string, payload []byte)

// Broker is what the exerter and provider need from an MQTT client.
type Broker interface {
	Publish(ctx context.Context, topic string, qos byte, payload []byte) error
	Subscribe(ctx context.Context, topic string, qos byte, h Handler) error
	Unsubscribe(ctx context.Context, topics ...string) error
}

// ErrTimeout occurs when the broker doesn't acknowledge in time.
var ErrTimeout = errors.New("broker timeout")

// BrokerOptions follow mosquitto_sub's command line args.
type BrokerOptions struct {
	Broker       string
	ClientID     string
	Username     string
	Password     string
	KeepAlive    time.Duration
	CleanSession bool
	Reconnect    bool

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	// Timeout bounds each broker operation.
	Timeout time.Duration

	CertFile string
	KeyFile  string
	CAFile   string
	Insecure bool
}

// PahoBroker is a Broker backed by a Paho client.
type PahoBroker struct {
	Client  mqtt.Client
	Timeout time.Duration
	Quiesce uint

	logger *zap.Logger
}

func tlsConfig(o BrokerOptions) (*tls.Config, error) {
	conf := &tls.Config{
		InsecureSkipVerify: o.Insecure,
	}
	if o.CAFile != "" {
		roots, _ := x509.SystemCertPool()
		if roots == nil {
			roots = x509.NewCertPool()
		}
		pem, err := os.ReadFile(o.CAFile)
		if err != nil {
			return nil, fmt.Errorf("couldn't read '%s': %w", o.CAFile, err)
		}
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certs in '%s'", o.CAFile)
		}
		conf.RootCAs = roots
	}
	if o.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
		if err != nil {
			return nil, err
		}
		conf.Certificates = []tls.Certificate{cert}
	}
	return conf, nil
}

// NewPahoBroker makes an unconnected PahoBroker.
func NewPahoBroker(o BrokerOptions) (*PahoBroker, error) {
	logger := util.Logger().With(zap.String("broker", o.Broker))
	mqtt.ERROR = zap.NewStdLog(logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	if 0 < o.KeepAlive {
		opts.SetKeepAlive(o.KeepAlive)
	}
	opts.SetUsername(o.Username)
	opts.SetPassword(o.Password)
	opts.SetAutoReconnect(o.Reconnect)
	opts.SetCleanSession(o.CleanSession)

	conf, err := tlsConfig(o)
	if err != nil {
		return nil, err
	}
	opts.SetTLSConfig(conf)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PahoBroker{
		Client:  mqtt.NewClient(opts),
		Timeout: timeout,
		Quiesce: o.Quiesce,
		logger:  logger,
	}, nil
}

func (b *PahoBroker) wait(ctx context.Context, t mqtt.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.WaitTimeout(b.Timeout) {
		return ErrTimeout
	}
	return t.Error()
}

// Connect creates the MQTT session.
func (b *PahoBroker) Connect(ctx context.Context) error {
	b.logger.Info("connecting to broker")
	if err := b.wait(ctx, b.Client.Connect()); err != nil {
		return err
	}
	b.logger.Info("connected to broker")
	return nil
}

// Disconnect terminates the MQTT session.
func (b *PahoBroker) Disconnect() {
	b.logger.Info("disconnecting")
	b.Client.Disconnect(b.Quiesce)
}

func (b *PahoBroker) Publish(ctx context.Context, topic string, qos byte, payload []byte) error {
	return b.wait(ctx, b.Client.Publish(topic, qos, false, payload))
}

func (b *PahoBroker) Subscribe(ctx context.Context, topic string, qos byte, h Handler) error {
	b.logger.Debug("subscribing", zap.String("topic", topic), zap.Uint8("qos", qos))
	return b.wait(ctx, b.Client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	}))
}

func (b *PahoBroker) Unsubscribe(ctx context.Context, topics ...string) error {
	return b.wait(ctx, b.Client.Unsubscribe(topics...))
}
