// Package logging provides the structured logger the Step Driver and CLI
// use for progress and error reporting, grounded on the teacher's use of
// logrus in its long-running server and web-UI entry points.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus.Logger configured with a text formatter and
// full timestamps, matching the teacher's default formatter choice.
func New() *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stdout
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	log.Level = logrus.InfoLevel
	return log
}

// StepFields builds the structured field set the driver attaches to its
// periodic "step completed" INFO line.
func StepFields(t, dt float64, activeCells int, drainedTotal float64) logrus.Fields {
	return logrus.Fields{
		"time":          t,
		"dt":            dt,
		"active_cells":  activeCells,
		"drained_total": drainedTotal,
	}
}
