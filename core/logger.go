package core

// Logger is any service that can log leveled messages, optionally attaching
// extra values (errors, maps, the acting user) to each entry.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
