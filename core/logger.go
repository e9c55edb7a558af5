package core

// Logger is any service that can log messages & errors.
// args may contain errors, extra data (map[string]interface{}) and the logged in user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LogPerson identifies the logged in user attached to a log entry.
type LogPerson struct {
	ID       string
	Username string
	Email    string
}
