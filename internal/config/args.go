// Package config turns the command line and the optional settings file into
// the immutable configuration each root argument is processed with.
package config

import "strings"

// Recognised switches. Anything else on the command line is a root
// directory, including unknown switches.
const (
	VerboseSwitch = "-v"
	StatsSwitch   = "--stats"
	ConfigPrefix  = "--config="
)

// RunConfig holds the process-wide mode switches in effect for one root.
type RunConfig struct {
	// Verbose routes diagnostic trace to standard output instead of
	// discarding it.
	Verbose bool
	// Stats prints the per-scene table instead of the one-line summary.
	Stats bool
}

// Job is one root directory together with the switches seen before it.
type Job struct {
	Root   string
	Config RunConfig
}

// Plan is the parsed command line.
type Plan struct {
	Jobs []Job

	// SettingsPath is the value of the last --config= switch, if any.
	SettingsPath string
}

// ParseArgs splits args (without the program name) into jobs. Switches take
// effect for every root that follows them; their position relative to
// earlier roots matters, and once set they stay set.
func ParseArgs(args []string) Plan {
	var plan Plan
	var cur RunConfig
	for _, arg := range args {
		switch {
		case arg == VerboseSwitch:
			cur.Verbose = true
		case arg == StatsSwitch:
			cur.Stats = true
		case strings.HasPrefix(arg, ConfigPrefix):
			plan.SettingsPath = strings.TrimPrefix(arg, ConfigPrefix)
		default:
			plan.Jobs = append(plan.Jobs, Job{Root: arg, Config: cur})
		}
	}
	return plan
}
