// Package logger provides the structured logging interface used across BUp.
//
// It wraps zerolog with a colored console writer, optional file output and
// a field-carrying Logger interface. There is no global instance: build one
// with New and pass it to each component.
//
//	log, err := logger.New(&cfg.Logging, logger.WithVersion(version))
//	if err != nil {
//	    return err
//	}
//	client := bilibili.NewClient(opts, log.WithField("component", "bilibili"))
//
// Tests use NewNopLogger, or NewTestLogger to assert on captured lines.
package logger
