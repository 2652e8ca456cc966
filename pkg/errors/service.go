package errors

// ServiceError is raised by the render engine when a screenshot cannot be
// produced. The code is one of the screenshot service range (-32001 ..
// -32004) and survives the trip through the broker so the gateway can
// re-package it as the matching JSON-RPC error.
type ServiceError struct {
	Code    int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError builds a ServiceError with an explicit code. A zero code
// defaults to CodeScreenshotFailed.
func NewServiceError(code int, message string) *ServiceError {
	if code == 0 {
		code = CodeScreenshotFailed
	}
	return &ServiceError{Code: code, Message: message}
}
