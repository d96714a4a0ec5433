package goruntime

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"go.uber.org/automaxprocs/maxprocs"
)

// SetMaxProcs matches GOMAXPROCS to the container CPU quota and reports the
// outcome through logger.
func SetMaxProcs(logger logr.Logger) {
	l := func(format string, a ...interface{}) {
		logger.Info(fmt.Sprintf(strings.TrimPrefix(format, "maxprocs: "), a...))
	}

	if _, err := maxprocs.Set(maxprocs.Logger(l)); err != nil {
		logger.Error(err, "Failed to set GOMAXPROCS automatically")
	}
}
