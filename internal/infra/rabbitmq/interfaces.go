package rabbitmq

import "context"

type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

var _ PublisherInterface = (*Publisher)(nil)
