package logging

import (
	"fmt"
	"log/syslog"
)

// NewSyslogWriter returns a writer that sends each log record to the local
// syslog daemon at LOG_INFO|LOG_USER under tag.
func NewSyslogWriter(tag string) (*syslog.Writer, error) {
	w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, tag)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to syslog: %w", err)
	}
	return w, nil
}
