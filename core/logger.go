package core

// Logger is the app-wide logging contract. Implementations may forward
// errors to an external reporting service.
//
// args may carry anything worth attaching to the entry; implementations
// knowing about specific types (errors, account info) may treat them specially.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, err error, args ...interface{})
	Fatal(msg string, args ...interface{})
}
