package sio

import (
	"context"
	"encoding/json"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/exertion"
)

// Request asks a provider to exert a task.
type Request struct {
	ID      string          `json:"id"`
	ReplyTo string          `json:"replyTo"`
	Task    json.RawMessage `json:"task"`
}

// Reply carries the exerted task back.  Err is set if the exertion
// failed, in which case Task (if any) holds the exceptions.
type Reply struct {
	ID   string          `json:"id"`
	Task json.RawMessage `json:"task,omitempty"`
	Err  string          `json:"err,omitempty"`
}

// RemoteError reports a failure on the provider's side.
type RemoteError struct {
	ID  string
	Msg string
}

func (e *RemoteError) Error() string {
	return "remote exertion " + e.ID + ": " + e.Msg
}

// ExertTopic is the topic for tasks of the service type.
func ExertTopic(prefix, serviceType string) string {
	return prefix + "/exert/" + serviceType
}

// ReplyTopic is the topic for the reply to the request.
func ReplyTopic(prefix, id string) string {
	return prefix + "/reply/" + id
}

// ExertJSON decodes a task, exerts it, and encodes the result.  The
// encoded task is returned even if the exertion failed.
func ExertJSON(ctx context.Context, ex exertion.Exerter, js []byte, opts ...core.Option) (json.RawMessage, error) {
	t, err := exertion.DecodeTask(js, opts...)
	if err != nil {
		return nil, err
	}
	_, xerr := ex.Exert(ctx, t)
	out, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return out, xerr
}

// Serve answers the request with the exerter.
func Serve(ctx context.Context, ex exertion.Exerter, req *Request, opts ...core.Option) *Reply {
	r := &Reply{
		ID: req.ID,
	}
	js, err := ExertJSON(ctx, ex, req.Task, opts...)
	r.Task = js
	if err != nil {
		r.Err = err.Error()
	}
	return r
}

// Absorb updates the local task from the remote one.
func Absorb(t *exertion.Task, js []byte, opts ...core.Option) error {
	remote, err := exertion.DecodeTask(js, opts...)
	if err != nil {
		return err
	}
	t.SetContext(remote.Context())
	t.AppendTrace(remote.Trace()...)
	t.SetStatus(remote.Status())
	return nil
}
