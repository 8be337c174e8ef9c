package model

// TargetKind tags the outcome of path resolution.
type TargetKind int

const (
	TargetNotFound TargetKind = iota
	TargetStatic
	TargetAction
)

func (k TargetKind) String() string {
	switch k {
	case TargetStatic:
		return "static"
	case TargetAction:
		return "action"
	default:
		return "not_found"
	}
}

// ActionFunc is a server-side operation reachable through routing.
type ActionFunc func(params map[string]string) ActionResult

// ActionResult is returned by an ActionFunc. Directives are response headers
// emitted verbatim and are only meaningful when Success is true.
type ActionResult struct {
	Success    bool
	Directives map[string][]string
}

// Target is what a request resolved to.
type Target struct {
	Kind TargetKind

	// Path is set for TargetStatic.
	Path string

	// Action, ActionName and Params are set for TargetAction.
	Action     ActionFunc
	ActionName string
	Params     map[string]string
}

// StaticTarget returns a target serving the named resource.
func StaticTarget(path string) Target {
	return Target{Kind: TargetStatic, Path: path}
}

// ActionTarget returns a target invoking fn with params.
func ActionTarget(name string, fn ActionFunc, params map[string]string) Target {
	return Target{Kind: TargetAction, Action: fn, ActionName: name, Params: params}
}

// NotFoundTarget returns the unresolved target.
func NotFoundTarget() Target {
	return Target{Kind: TargetNotFound}
}
