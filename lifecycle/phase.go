package lifecycle

// Phase is a stage in the worker lifecycle. Controllers move strictly
// forward: uninstalled, installing, installed, activating, active.
type Phase int

const (
	PhaseUninstalled Phase = iota
	PhaseInstalling
	PhaseInstalled
	PhaseActivating
	PhaseActive
)

var phaseNames = map[Phase]string{
	PhaseUninstalled: "uninstalled",
	PhaseInstalling:  "installing",
	PhaseInstalled:   "installed",
	PhaseActivating:  "activating",
	PhaseActive:      "active",
}

// String returns the phase name used in logs and health reports.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}
