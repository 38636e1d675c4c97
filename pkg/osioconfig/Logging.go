package osioconfig

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// SetLogging sets the logrus logging level and output to stdout.
// See also SetLoggingOutput.
func SetLogging(levelName string, logFile string) error {
	return SetLoggingOutput(os.Stdout, levelName, logFile)
}

// SetLoggingOutput sets the logrus logging level and output.
// Logging goes to out and, when a logFile is given, to the file as well.
//  out is the console output, eg os.Stderr for commandline tools that print results on stdout
//  levelName is one of error, warning, info or debug. Default is warning
//  logFile to append logging to, "" for the console output only
// Returns an error if the log file can't be opened. Logging to the console continues.
func SetLoggingOutput(out io.Writer, levelName string, logFile string) error {
	var err error
	loggingLevel := logrus.WarnLevel

	switch strings.ToLower(levelName) {
	case "error":
		loggingLevel = logrus.ErrorLevel
	case "warn", "warning":
		loggingLevel = logrus.WarnLevel
	case "info":
		loggingLevel = logrus.InfoLevel
	case "debug":
		loggingLevel = logrus.DebugLevel
	}
	logOut := out
	if logFile != "" {
		fileHandle, err2 := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
		if err2 != nil {
			err = err2
			logrus.Errorf("SetLogging: Unable to open logfile '%s': %s", logFile, err2)
		} else {
			logOut = io.MultiWriter(out, fileHandle)
		}
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000-0700",
	})
	logrus.SetOutput(logOut)
	logrus.SetLevel(loggingLevel)
	return err
}
