package util

// Logger is the logging surface the core consumes. The CLI layer wires a
// zerolog-backed implementation; tests can substitute a recording fake.
type Logger interface {
	FatalIfError(error, string, ...interface{})
	Fatal(string, ...interface{})
	ErrorIfError(error, string, ...interface{})
	Error(string, ...interface{})
	Warning(string, ...interface{})
	Notice(string, ...interface{})
	Info(string, ...interface{})
	Trace(string, ...interface{})
}
