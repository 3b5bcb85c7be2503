package entitystore

// Result is the uniform envelope returned by every remote call and
// every store operation. When Success is true Data is present (except
// for operations whose result is inherently empty); when Success is
// false ErrorMessage carries a human-readable explanation and Data is
// absent.
type Result[T any] struct {
	Success      bool   `json:"success"`
	Data         *T     `json:"data,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// OK wraps a successful result
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: &data}
}

// Fail wraps a failure with a human-readable message
func Fail[T any](message string) Result[T] {
	if message == "" {
		message = genericFailureMessage
	}
	return Result[T]{Success: false, ErrorMessage: message}
}

const genericFailureMessage = "an unexpected error occurred"
