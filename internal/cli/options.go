package cli

import "time"

// RunOptions contains the configuration of the run command.
type RunOptions struct {
	// FlowPath is a JSON or YAML snapshot file. When empty, Owner is read from StoreDir.
	FlowPath string
	Owner    string
	StoreDir string

	JSON     bool
	Watch    bool
	Debug    bool
	NoBanner bool

	Delay    time.Duration
	MaxSteps int
}
