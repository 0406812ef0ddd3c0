package types

// Logger is what the rest of the module logs through. Fields are zap.Field values;
// anything else passed as a field is dropped by the zap implementation.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	// Fatalf logs at fatal level and exits with status 1. Execute uses it for command errors.
	Fatalf(msg string, fields ...interface{})
}
