package registry

import (
	"fmt"
	"log/slog"

	"github.com/cascadeflow/cascade/pkg/workflow"
)

// ActionFactory builds the unit of work for an action step from its
// configuration block.
type ActionFactory func(config map[string]any) (workflow.Func, error)

// StaticAction wraps a plain function as a factory for actions that take
// no configuration.
func StaticAction(fn workflow.Func) ActionFactory {
	return func(_ map[string]any) (workflow.Func, error) {
		return fn, nil
	}
}

// Registry holds the named actions a host program exposes to
// definitions and builds executable workflows from parsed definitions.
type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:          logger.With("module", "registry"),
		actionFactories: make(map[string]ActionFactory),
	}
}

// RegisterAction makes an action factory available under a name.
func (r *Registry) RegisterAction(name string, factory ActionFactory) {
	r.actionFactories[name] = factory
}

// ActionNames returns the registered action names.
func (r *Registry) ActionNames() []string {
	names := make([]string, 0, len(r.actionFactories))
	for name := range r.actionFactories {
		names = append(names, name)
	}

	return names
}

func (r *Registry) createAction(name string, config map[string]any) (workflow.Func, error) {
	factory, ok := r.actionFactories[name]
	if !ok {
		return nil, fmt.Errorf("action %q not registered", name)
	}

	return factory(config)
}

// BuildWorkflow turns a parsed definition into an executable workflow.
func (r *Registry) BuildWorkflow(def *Definition) (*workflow.Workflow, error) {
	w, err := workflow.New(workflow.Options{
		Name:               def.Name,
		ID:                 def.ID,
		State:              def.State,
		ExitOnFailure:      def.ExitOnFailure,
		FreezeOnCompletion: def.FreezeOnCompletion,
		Logger:             r.logger,
	})
	if err != nil {
		return nil, err
	}

	for i, stepDef := range def.Steps {
		step, err := r.buildStep(stepDef)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, stepDef.Name, err)
		}

		w.AddStep(step)
	}

	r.logger.Debug("Built workflow from definition",
		"workflow_name", def.Name, "steps", len(def.Steps))

	return w, nil
}

func (r *Registry) buildStep(def StepDefinition) (workflow.Executable, error) {
	switch def.Type {
	case "action":
		return r.buildActionStep(def)
	case "conditional":
		return r.buildConditionalStep(def)
	case "switch":
		return r.buildSwitchStep(def)
	case "flow_control":
		return r.buildFlowControlStep(def)
	case "skip":
		return r.buildSkipStep(def)
	case "delay":
		return r.buildDelayStep(def)
	case "loop":
		return r.buildLoopStep(def)
	default:
		return nil, fmt.Errorf("unknown step type %q", def.Type)
	}
}

func (r *Registry) buildActionStep(def StepDefinition) (workflow.Executable, error) {
	if def.Action == "" {
		return nil, fmt.Errorf("action step %q misses an action name", def.Name)
	}

	fn, err := r.createAction(def.Action, def.Config)
	if err != nil {
		return nil, err
	}

	return workflow.NewStep(workflow.StepOptions{
		Name:     def.Name,
		Callable: workflow.FuncCallable(fn),
		Logger:   r.logger,
	})
}

func (r *Registry) buildConditionalStep(def StepDefinition) (workflow.Executable, error) {
	if def.Condition == nil {
		return nil, fmt.Errorf("conditional step %q misses a condition", def.Name)
	}

	var left, right workflow.Executable

	if def.Left != nil {
		branch, err := r.buildStep(*def.Left)
		if err != nil {
			return nil, fmt.Errorf("left branch: %w", err)
		}

		left = branch
	}

	if def.Right != nil {
		branch, err := r.buildStep(*def.Right)
		if err != nil {
			return nil, fmt.Errorf("right branch: %w", err)
		}

		right = branch
	}

	return workflow.NewConditionalStep(workflow.ConditionalStepOptions{
		Name:     def.Name,
		Subject:  decodeOperand(def.Condition.Subject),
		Operator: def.Condition.Operator,
		Value:    decodeOperand(def.Condition.Value),
		Left:     left,
		Right:    right,
		Logger:   r.logger,
	})
}

func (r *Registry) buildSwitchStep(def StepDefinition) (workflow.Executable, error) {
	cases := make([]*workflow.Case, 0, len(def.Cases))

	for i, caseDef := range def.Cases {
		fn, err := r.createAction(caseDef.Action, nil)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}

		kase, err := workflow.NewCase(
			decodeOperand(caseDef.Subject),
			caseDef.Operator,
			decodeOperand(caseDef.Value),
			workflow.FuncCallable(fn),
		)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}

		cases = append(cases, kase)
	}

	var defaultCase workflow.Callable

	if def.Default != "" {
		fn, err := r.createAction(def.Default, nil)
		if err != nil {
			return nil, fmt.Errorf("default case: %w", err)
		}

		defaultCase = workflow.FuncCallable(fn)
	}

	return workflow.NewSwitchStep(workflow.SwitchStepOptions{
		Name:    def.Name,
		Cases:   cases,
		Default: defaultCase,
		Logger:  r.logger,
	})
}

func (r *Registry) buildFlowControlStep(def StepDefinition) (workflow.Executable, error) {
	if def.Condition == nil {
		return nil, fmt.Errorf("flow_control step %q misses a condition", def.Name)
	}

	return workflow.NewFlowControlStep(workflow.FlowControlStepOptions{
		Name:     def.Name,
		Mode:     workflow.FlowControlType(def.Mode),
		Subject:  decodeOperand(def.Condition.Subject),
		Operator: def.Condition.Operator,
		Value:    decodeOperand(def.Condition.Value),
		Logger:   r.logger,
	})
}

func (r *Registry) buildSkipStep(def StepDefinition) (workflow.Executable, error) {
	if def.Condition == nil {
		return nil, fmt.Errorf("skip step %q misses a condition", def.Name)
	}

	return workflow.NewSkipStep(workflow.SkipStepOptions{
		Name:     def.Name,
		Subject:  decodeOperand(def.Condition.Subject),
		Operator: def.Condition.Operator,
		Value:    decodeOperand(def.Condition.Value),
		Logger:   r.logger,
	})
}

func (r *Registry) buildDelayStep(def StepDefinition) (workflow.Executable, error) {
	duration, err := parseDuration(def.Duration)
	if err != nil {
		return nil, err
	}

	return workflow.NewDelayStep(workflow.DelayStepOptions{
		Name:      def.Name,
		DelayType: workflow.DelayType(def.DelayType),
		Timestamp: def.Timestamp,
		Duration:  duration,
		Cron:      def.Cron,
		Logger:    r.logger,
	})
}

func (r *Registry) buildLoopStep(def StepDefinition) (workflow.Executable, error) {
	body, err := workflow.New(workflow.Options{
		Name:   def.Name + "-body",
		Logger: r.logger,
	})
	if err != nil {
		return nil, err
	}

	for i, stepDef := range def.Body {
		step, err := r.buildStep(stepDef)
		if err != nil {
			return nil, fmt.Errorf("body step %d: %w", i, err)
		}

		body.AddStep(step)
	}

	opts := workflow.LoopStepOptions{
		Name:          def.Name,
		LoopType:      workflow.LoopType(def.LoopType),
		Iterable:      def.Iterable,
		MaxIterations: def.MaxIterations,
		Body:          body,
		Logger:        r.logger,
	}

	if def.Condition != nil {
		opts.Subject = decodeOperand(def.Condition.Subject)
		opts.Operator = def.Condition.Operator
		opts.Value = decodeOperand(def.Condition.Value)
	}

	return workflow.NewLoopStep(opts)
}
