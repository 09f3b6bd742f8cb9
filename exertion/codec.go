package exertion

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/mwsobol/SORCER-sub002/core"
)

// taskJSON is the wire form of a Task.  Traces don't travel.
type taskJSON struct {
	ID         uuid.UUID            `json:"id"`
	Name       string               `json:"name"`
	Status     Status               `json:"status"`
	Context    *core.ServiceContext `json:"context"`
	Signatures []*Signature         `json:"signatures"`
	Selected   string               `json:"selected,omitempty"`
	Exceptions []string             `json:"exceptions,omitempty"`
}

func (t *Task) MarshalJSON() ([]byte, error) {
	w := taskJSON{
		ID:         t.ID(),
		Name:       t.Name(),
		Status:     t.Status(),
		Context:    t.Context(),
		Signatures: t.Signatures(),
		Selected:   t.Fidelity().SelectName(),
	}
	for _, ex := range t.Exceptions() {
		w.Exceptions = append(w.Exceptions, ex.Message+": "+ex.Cause)
	}
	return json.Marshal(&w)
}

// DecodeTask makes a Task from its JSON form.  The options apply to
// the task's context.
func DecodeTask(js []byte, opts ...core.Option) (*Task, error) {
	w := taskJSON{
		Context: core.NewServiceContext("", opts...),
	}
	if err := json.Unmarshal(js, &w); err != nil {
		return nil, err
	}
	t := NewTask(w.Name, w.Context, w.Signatures...)
	t.id = w.ID
	t.status = w.Status
	if w.Selected != "" {
		if err := t.Fidelity().SelectByName(w.Selected); err != nil {
			return nil, err
		}
	}
	for _, ex := range w.Exceptions {
		t.AppendTrace("remote: " + ex)
	}
	return t, nil
}
