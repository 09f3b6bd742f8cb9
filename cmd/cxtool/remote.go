package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/exertion"
	"github.com/mwsobol/SORCER-sub002/service"
	"github.com/mwsobol/SORCER-sub002/sio"
	"github.com/mwsobol/SORCER-sub002/storage"
)

// localExerter has the built-in providers.
func (a *app) localExerter() *exertion.LocalExerter {
	ex := exertion.NewLocalExerter()
	ex.SetLogger(a.logger)
	registerArithmetic(ex)
	return ex
}

// connect makes and connects the configured MQTT broker.
func (a *app) connect(ctx context.Context) (*sio.PahoBroker, error) {
	b, err := sio.NewPahoBroker(a.cfg.MQTT.BrokerOptions())
	if err != nil {
		return nil, err
	}
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (a *app) mqttExerter(b sio.Broker) *sio.MQTTExerter {
	ex := sio.NewMQTTExerter(b, a.cfg.MQTT.Prefix)
	ex.QoS = byte(a.cfg.MQTT.QoS)
	ex.Timeout = a.cfg.MQTT.Timeout
	return ex
}

func (a *app) serveCmd() *cobra.Command {
	var (
		addr        string
		provide     bool
		forward     bool
		drainPeriod time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored contexts and exertions over WebSockets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = a.cfg.Service.Addr
			}
			return a.withStore(ctx, func(cm storage.ContextManagement) error {
				local := a.localExerter()
				var ex exertion.Exerter = local

				if provide || forward {
					b, err := a.connect(ctx)
					if err != nil {
						return err
					}
					defer b.Disconnect()

					if provide {
						p := sio.NewMQTTProvider(b, a.cfg.MQTT.Prefix, local)
						p.QoS = byte(a.cfg.MQTT.QoS)
						p.ContextOptions = []core.Option{core.WithAccessor(storage.Accessor(cm))}
						if err := p.Start(ctx); err != nil {
							return err
						}
						defer p.Stop(context.Background())
					}
					if forward {
						ex = a.mqttExerter(b)
					}
				}

				mux := http.NewServeMux()
				mux.Handle(a.cfg.Service.Path, service.NewServer(cm, ex))
				srv := &http.Server{
					Addr:    addr,
					Handler: mux,
				}

				errs := make(chan error, 1)
				go func() {
					errs <- srv.ListenAndServe()
				}()
				a.logger.Info("serving",
					zap.String("addr", addr),
					zap.String("path", a.cfg.Service.Path),
					zap.Bool("mqttProvider", provide),
					zap.Bool("mqttForward", forward))

				select {
				case err := <-errs:
					return err
				case <-ctx.Done():
				}

				sctx, cancel := context.WithTimeout(context.Background(), drainPeriod)
				defer cancel()
				if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&provide, "mqtt-provide", false, "also serve the built-in providers over MQTT")
	cmd.Flags().BoolVar(&forward, "mqtt-forward", false, "exert with remote MQTT providers instead of the built-in ones")
	cmd.Flags().DurationVar(&drainPeriod, "drain", 5*time.Second, "shutdown grace period")
	return cmd
}

func (a *app) exertCmd() *cobra.Command {
	var (
		selector    string
		serviceType string
		provider    string
		url         string
		overMQTT    bool
	)
	cmd := &cobra.Command{
		Use:   "exert FILE [PATH=VALUE ...]",
		Short: "Exert a task on a context document and print the resulting context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if selector == "" {
				return errors.New("need a --selector")
			}
			entries, err := parseEntries(args[1:])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.loadFile(ctx, args[0], func(cm storage.ContextManagement, c *core.ServiceContext) error {
				if err := c.Substitute(entries...); err != nil {
					return err
				}
				sig := exertion.Sig(selector, serviceType)
				sig.ProviderName = provider
				t := exertion.NewTask(c.Name(), c, sig)

				var ex exertion.Exerter
				switch {
				case url != "":
					client, err := service.Dial(ctx, url)
					if err != nil {
						return err
					}
					defer client.Close()
					ex = client
				case overMQTT:
					b, err := a.connect(ctx)
					if err != nil {
						return err
					}
					defer b.Disconnect()
					e := a.mqttExerter(b)
					e.ContextOptions = []core.Option{core.WithAccessor(storage.Accessor(cm))}
					ex = e
				default:
					ex = a.localExerter()
				}

				m, err := ex.Exert(ctx, t)
				if m != nil {
					if perr := printJSON(cmd.OutOrStdout(), m.Context()); perr != nil && err == nil {
						err = perr
					}
				}
				if err != nil {
					return fmt.Errorf("%s: %w", sig, err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "s", "", "operation to call")
	cmd.Flags().StringVarP(&serviceType, "type", "t", ArithmeticType, "service type")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider name")
	cmd.Flags().StringVar(&url, "url", "", "exert through the WebSocket service at this URL")
	cmd.Flags().BoolVar(&overMQTT, "mqtt", false, "exert with remote MQTT providers")
	return cmd
}
