package test

import (
	"pushit/pkg/model"
)

// SampleSettings returns non-default settings for testing.
func SampleSettings() model.Settings {
	return model.Settings{
		Remote:         "upstream",
		Branch:         "develop",
		DefaultMessage: "wip",
		LogLevel:       "debug",
	}
}

// SampleConfigYAML returns a config file matching SampleSettings.
func SampleConfigYAML() string {
	return `remote: upstream
branch: develop
default-message: wip
log-level: debug
`
}
