package hyp

import "fmt"

// GatewayError covers transport and protocol failures talking to Hyp.
// Fatal marks configuration-caused failures that retrying cannot fix.
type GatewayError struct {
	Op     string
	Fatal  bool
	Status int
	Err    error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("hyp %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
