package harness

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	BackendModel = "model"
	BackendGoja  = "goja"
)

// Backend executes scenario steps against one engine. Every observation is
// rendered to the canonical text form used by Step.Expect.
type Backend interface {
	Name() string
	// Reset discards all state and builds fx in a fresh realm.
	Reset(fx *Fixture) error
	// Eval performs one step. A language-level exception is reported as a
	// *Thrown error; any other error means the step could not run.
	Eval(step *Step) (string, error)
}

// Thrown is a language-level exception raised while evaluating a step.
type Thrown struct {
	Message string
}

func (t *Thrown) Error() string { return "uncaught " + t.Message }

// NewBackend returns the backend registered under name.
func NewBackend(name string) (Backend, error) {
	switch name {
	case BackendModel, "":
		return NewModelBackend(), nil
	case BackendGoja:
		return NewGojaBackend(), nil
	default:
		return nil, errors.Errorf("unknown backend %q (want %s or %s)", name, BackendModel, BackendGoja)
	}
}

// fnState tracks calls made to a fixture function.
type fnState struct {
	decl     FunctionDecl
	calls    int
	lastThis string
}

func unknownObject(name string) error {
	return fmt.Errorf("no object named %q in this test", name)
}
