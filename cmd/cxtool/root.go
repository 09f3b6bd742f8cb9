package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mwsobol/SORCER-sub002/config"
	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/interpreters"
	"github.com/mwsobol/SORCER-sub002/interpreters/goja"
	"github.com/mwsobol/SORCER-sub002/storage"
	"github.com/mwsobol/SORCER-sub002/tools"
	"github.com/mwsobol/SORCER-sub002/util"
)

// app is the state shared by the commands.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cxtool",
		Short:         "Inspect, store, serve, and exert service contexts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "YAML config file")

	root.AddCommand(
		a.showCmd(),
		a.getCmd(),
		a.markedCmd(),
		a.matchCmd(),
		a.htmlCmd(),
		a.dotCmd(),
		a.mermaidCmd(),
		a.analyzeCmd(),
		a.saveCmd(),
		a.loadCmd(),
		a.lsCmd(),
		a.rmCmd(),
		a.serveCmd(),
		a.exertCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger, err = cfg.Logger(); err != nil {
		return err
	}
	util.SetLogger(a.logger)

	for name, i := range interpreters.Standard() {
		if g, is := i.(*goja.Interpreter); is {
			g.Timeout = cfg.Interpreter.Timeout
		}
		core.DefaultInterpreters[name] = i
	}
	return nil
}

// withStore opens the configured store for the duration of f.
func (a *app) withStore(ctx context.Context, f func(storage.ContextManagement) error) error {
	cm, closer, err := a.cfg.OpenStore(ctx)
	if err != nil {
		return err
	}
	err = f(cm)
	if cerr := closer(); err == nil {
		err = cerr
	}
	return err
}

// loadFile reads a context document.  Its links resolve through the
// configured store, which stays open for the duration of f.
func (a *app) loadFile(ctx context.Context, filename string, f func(storage.ContextManagement, *core.ServiceContext) error) error {
	return a.withStore(ctx, func(cm storage.ContextManagement) error {
		c, err := tools.LoadContextFile(filename, core.WithAccessor(storage.Accessor(cm)))
		if err != nil {
			return err
		}
		return f(cm, c)
	})
}

func printJSON(w io.Writer, x interface{}) error {
	js, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", js)
	return err
}

// parseEntries turns "path=value" args into Entries.  A value that
// parses as JSON is used as such.  Otherwise it's a string.
func parseEntries(args []string) ([]core.Arg, error) {
	acc := make([]core.Arg, 0, len(args))
	for _, arg := range args {
		path, val, ok := strings.Cut(arg, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("bad entry %q (want path=value)", arg)
		}
		var v interface{}
		if err := json.Unmarshal([]byte(val), &v); err != nil {
			v = val
		}
		acc = append(acc, core.Entry{Path: path, Value: v})
	}
	return acc, nil
}
