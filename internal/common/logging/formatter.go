package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// CommandLineFormatter prints only the message, followed by the error if one is attached to the entry.
type CommandLineFormatter struct{}

func (f *CommandLineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		return []byte(fmt.Sprintf("%s: %v\n", entry.Message, err)), nil
	}
	return []byte(fmt.Sprintf("%s\n", entry.Message)), nil
}

// NullLogger discards everything. Useful for tests and for silencing components.
var NullLogger = &logrus.Logger{
	Out:       io.Discard,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.PanicLevel,
}
