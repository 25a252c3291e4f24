package errors

import (
	"github.com/sirupsen/logrus"
)

// Fields returns structured log fields describing err
func Fields(err error) logrus.Fields {
	fields := logrus.Fields{}
	if err == nil {
		return fields
	}
	fields[logrus.ErrorKey] = err.Error()

	appErr, ok := As(err)
	if !ok {
		return fields
	}
	fields["error_code"] = string(appErr.Code)
	fields["retryable"] = appErr.Retryable
	for k, v := range appErr.Context {
		fields[k] = v
	}
	return fields
}

// Log writes err at warn level when retryable and error level otherwise
func Log(entry *logrus.Entry, err error, message string) {
	entry = entry.WithFields(Fields(err))
	if IsRetryable(err) {
		entry.Warn(message)
		return
	}
	entry.Error(message)
}
