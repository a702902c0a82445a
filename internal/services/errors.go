package services

import "fmt"

// TransientRenderError wraps renderer and storage failures inside a
// certificate job. It is recorded on the certificate record and never
// returned to an HTTP caller.
type TransientRenderError struct {
	Stage string
	Err   error
}

func (e *TransientRenderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Stage == "" {
		return fmt.Sprintf("render failed: %v", e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *TransientRenderError) Unwrap() error { return e.Err }

func NewTransientRenderError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientRenderError{Stage: stage, Err: err}
}
