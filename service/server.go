package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/exertion"
	"github.com/mwsobol/SORCER-sub002/sio"
	"github.com/mwsobol/SORCER-sub002/storage"
	"github.com/mwsobol/SORCER-sub002/util"
)

// Server answers Ops that arrive on WebSocket connections.
type Server struct {
	Storage storage.ContextManagement

	// Exerter, if not nil, serves Exert operations.
	Exerter exertion.Exerter

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewServer(cm storage.ContextManagement, ex exertion.Exerter) *Server {
	return &Server{
		Storage: cm,
		Exerter: ex,
		logger:  util.Logger(),
	}
}

// ServeHTTP upgrades the connection and then processes Ops in order
// until the connection closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade error", zap.Error(err))
		return
	}
	defer c.Close()

	remote := c.RemoteAddr().String()
	s.logger.Info("connection", zap.String("remote", remote))
	ctx := r.Context()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read error", zap.String("remote", remote), zap.Error(err))
			}
			return
		}

		var op Op
		var resp *Response
		if err := json.Unmarshal(message, &op); err != nil {
			resp = &Response{
				Err: fmt.Sprintf("can't parse: %v", err),
			}
		} else {
			resp = s.Do(ctx, &op)
		}

		if err := c.WriteJSON(resp); err != nil {
			s.logger.Warn("write error", zap.String("remote", remote), zap.Error(err))
			return
		}
	}
}

func erred(resp *Response, err error) *Response {
	resp.Err = err.Error()
	resp.NotFound = errors.Is(err, storage.ErrNotFound)
	return resp
}

// Do processes one Op.
func (s *Server) Do(ctx context.Context, op *Op) *Response {
	resp := &Response{
		ID: op.ID,
	}
	switch {
	case op.GetContext != nil:
		c, err := s.Storage.GetContext(ctx, op.GetContext.Name)
		if err != nil {
			return erred(resp, err)
		}
		js, err := storage.Encode(c)
		if err != nil {
			return erred(resp, err)
		}
		resp.Context = js

	case op.SaveContext != nil:
		c, err := core.DecodeContext(op.SaveContext.Context)
		if err != nil {
			return erred(resp, err)
		}
		if err := s.Storage.SaveContext(ctx, op.SaveContext.Name, c); err != nil {
			return erred(resp, err)
		}

	case op.DeleteContext != nil:
		if err := s.Storage.DeleteContext(ctx, op.DeleteContext.Name); err != nil {
			return erred(resp, err)
		}

	case op.ContextNames != nil:
		names, err := s.Storage.ContextNames(ctx)
		if err != nil {
			return erred(resp, err)
		}
		resp.Names = names

	case op.Exert != nil:
		if s.Exerter == nil {
			return erred(resp, errors.New("no exerter"))
		}
		js, err := sio.ExertJSON(ctx, s.Exerter, op.Exert.Task, core.WithAccessor(storage.Accessor(s.Storage)))
		resp.Task = js
		if err != nil {
			return erred(resp, err)
		}

	default:
		return erred(resp, errors.New("no operation"))
	}
	return resp
}
