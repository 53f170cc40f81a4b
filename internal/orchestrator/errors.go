// internal/orchestrator/errors.go
package orchestrator

// ConfigurationError reports a configuration problem detected before
// any agent runs, such as an unknown workflow name. Fatal to the call.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// Code returns the stable error code for this error kind.
func (e *ConfigurationError) Code() string {
	return "CONFIG_ERROR"
}
