package web

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/registry"
	"github.com/cascadeflow/cascade/pkg/workflow"
)

var (
	ErrDefinitionNotFound = errors.New("definition not found")
	ErrExecutionNotFound  = errors.New("execution not found")
)

func IsDefinitionNotFound(err error) bool { return errors.Is(err, ErrDefinitionNotFound) }
func IsExecutionNotFound(err error) bool  { return errors.Is(err, ErrExecutionNotFound) }

// DefinitionStore keeps registered workflow definitions in memory.
type DefinitionStore struct {
	mu          sync.RWMutex
	definitions map[string]*registry.Definition
}

func NewDefinitionStore() *DefinitionStore {
	return &DefinitionStore{definitions: make(map[string]*registry.Definition)}
}

// Save stores a definition, assigning an id when it has none, and
// returns the id.
func (s *DefinitionStore) Save(def *registry.Definition) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if def.ID == "" {
		def.ID = "def-" + uuid.New().String()[:8]
	}

	s.definitions[def.ID] = def

	return def.ID
}

func (s *DefinitionStore) Get(id string) (*registry.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.definitions[id]
	if !ok {
		return nil, ErrDefinitionNotFound
	}

	return def, nil
}

func (s *DefinitionStore) List() []*registry.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]*registry.Definition, 0, len(s.definitions))
	for _, def := range s.definitions {
		defs = append(defs, def)
	}

	return defs
}

func (s *DefinitionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.definitions[id]; !ok {
		return ErrDefinitionNotFound
	}

	delete(s.definitions, id)

	return nil
}

// Execution tracks one workflow run started through the API.
type Execution struct {
	ID           string
	DefinitionID string
	Workflow     *workflow.Workflow

	mu     sync.RWMutex
	output []workflow.Output
	err    error
	done   bool
}

// Finish records the terminal result of the current run segment.
func (e *Execution) Finish(output []workflow.Output, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.output = output
	e.err = err
	e.done = true
}

// Restarted marks the execution in-flight again (after resume).
func (e *Execution) Restarted() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.done = false
}

// RunResult is the recorded outcome of an execution's last run segment.
type RunResult struct {
	Output []workflow.Output
	Err    error
	Done   bool
}

// Snapshot returns the last recorded run result.
func (e *Execution) Snapshot() RunResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return RunResult{Output: e.output, Err: e.err, Done: e.done}
}

// ExecutionStore keeps executions in memory.
type ExecutionStore struct {
	mu         sync.RWMutex
	executions map[string]*Execution
}

func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{executions: make(map[string]*Execution)}
}

func (s *ExecutionStore) Save(execution *Execution) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if execution.ID == "" {
		execution.ID = "exec-" + uuid.New().String()[:8]
	}

	s.executions[execution.ID] = execution

	return execution.ID
}

func (s *ExecutionStore) Get(id string) (*Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	execution, ok := s.executions[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}

	return execution, nil
}

func (s *ExecutionStore) List() []*Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	executions := make([]*Execution, 0, len(s.executions))
	for _, execution := range s.executions {
		executions = append(executions, execution)
	}

	return executions
}
