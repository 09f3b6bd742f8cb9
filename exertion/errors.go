package exertion

// MogramError reports a structural problem with a mogram, such as a
// job that isn't a tree.
type MogramError struct {
	Mogram Mogram
	Msg    string
	Err    error
}

func (e *MogramError) Error() string {
	s := "mogram"
	if e.Mogram != nil {
		s += ` "` + e.Mogram.Name() + `"`
	}
	s += ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *MogramError) Unwrap() error {
	return e.Err
}

// ExertionError reports a failure to exert, such as a missing or
// failing provider.
type ExertionError struct {
	Mogram    Mogram
	Signature *Signature
	Err       error
}

func (e *ExertionError) Error() string {
	s := "exertion"
	if e.Mogram != nil {
		s += ` "` + e.Mogram.Name() + `"`
	}
	if e.Signature != nil {
		s += " " + e.Signature.String()
	}
	return s + ": " + e.Err.Error()
}

func (e *ExertionError) Unwrap() error {
	return e.Err
}

// RoutineError reports a routine that can't run as configured, for
// example one without a process signature.
type RoutineError struct {
	Mogram Mogram
	Msg    string
}

func (e *RoutineError) Error() string {
	s := "routine"
	if e.Mogram != nil {
		s += ` "` + e.Mogram.Name() + `"`
	}
	return s + ": " + e.Msg
}
