package apperr

type Kind string

type AppError struct {
	Kind      Kind
	PublicMsg string            // safe to show to the caller
	Fields    map[string]string // per-field validation messages (optional)
	Data      any               // diagnostic payload echoed to API callers (optional)
	Err       error             // internal error, logged only
}
