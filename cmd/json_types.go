package cmd

// stepForJSON is a struct used for marshaling a plan step to JSON for machine-readable output.
type stepForJSON struct {
	Kind    string   `json:"kind"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Details []string `json:"details"`
}
