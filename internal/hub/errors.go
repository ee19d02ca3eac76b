package hub

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// NotAdvertisedError indicates a publish was issued against a topic with
// no writer attached.
type NotAdvertisedError struct {
	Topic string
}

func (e NotAdvertisedError) Error() string {
	return fmt.Sprintf("topic %q is not advertised", e.Topic)
}

// NotSubscribedError indicates an unsubscribe (or a subscribe against a
// topic discovery has never reported) referenced an unknown channel.
type NotSubscribedError struct {
	Topic string
}

func (e NotSubscribedError) Error() string {
	return fmt.Sprintf("topic %q has no such subscription", e.Topic)
}

// CallFailedError indicates a service RPC failed or timed out. Code follows
// grpc's status/codes convention so sink clients already speaking gRPC
// status semantics get a familiar classification without a translation
// layer of our own.
type CallFailedError struct {
	Service string
	Reason  string
	Code    codes.Code
}

func (e CallFailedError) Error() string {
	return fmt.Sprintf("service call to %q failed (%s): %s", e.Service, e.Code, e.Reason)
}

// newCallFailedError classifies err against context cancellation/deadline
// before falling back to codes.Unknown.
func newCallFailedError(service string, err error) CallFailedError {
	code := codes.Unknown
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return CallFailedError{Service: service, Reason: err.Error(), Code: code}
}

// UnknownServiceError indicates a service call against a name the Hub never
// saw discovered.
type UnknownServiceError struct {
	Service string
}

func (e UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service: %s", e.Service)
}
