package hyp

import "context"

type ClientInterface interface {
	Sign(ctx context.Context, req SignRequest) (*SignResult, error)
	Verify(ctx context.Context, callbackParams map[string]string) (*VerifyResult, error)
}

var _ ClientInterface = (*Client)(nil)
