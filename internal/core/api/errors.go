package api

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/smartlist/internal/types"
)

// toStatus maps domain errors onto gRPC codes.
// Auth errors are mapped by the auth interceptor.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, types.ErrPlaylistNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrUnknownField),
		errors.Is(err, types.ErrUnknownOperator),
		errors.Is(err, types.ErrInvalidOperand),
		errors.Is(err, types.ErrInvalidMatch),
		errors.Is(err, errInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		// Storage failures
		return status.Error(codes.Unavailable, err.Error())
	}
}

var errInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, fmt.Sprintf(format, args...))
}

// stringField reads an optional string; a present non-string is an error.
func stringField(req *structpb.Struct, key string) (string, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return "", nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", invalid("%s must be a string", key)
	}
	return s.StringValue, nil
}

// intField reads an optional non-negative integer; 0 when absent.
func intField(req *structpb.Struct, key string) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue < 0 || n.NumberValue != float64(int(n.NumberValue)) {
		return 0, invalid("%s must be a non-negative integer", key)
	}
	return int(n.NumberValue), nil
}
