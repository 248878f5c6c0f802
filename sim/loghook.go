package sim

import (
	"log"
	"os"
)

// LogHookBase is embedded by hooks that print what they see.
type LogHookBase struct {
	*log.Logger
}

// NewLogHookBase wraps a logger. A nil logger prints to stderr without a
// prefix.
func NewLogHookBase(logger *log.Logger) LogHookBase {
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}

	return LogHookBase{Logger: logger}
}
