package core

// Logger is the app-wide logging interface.
// args may hold errors, maps of extra data or a Principal identifying the caller.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Principal is the authenticated caller of an operation, as resolved by the session layer.
type Principal struct {
	UserID   string
	Username string
	TenantID string
	Roles    []string
}
