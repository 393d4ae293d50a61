package recorder

// Interface is the recorder's public surface: a blocking listen loop and an
// idempotent stop usable from signal handlers.
type Interface interface {
	Start() error
	Stop()
	State() State
}
