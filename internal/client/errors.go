package client

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/votefeed/internal/errs"
)

var sentinelOf = map[codes.Code]error{
	codes.InvalidArgument:   errs.ErrInvalidArgument,
	codes.NotFound:          errs.ErrNotFound,
	codes.Unauthenticated:   errs.ErrUnauthenticated,
	codes.PermissionDenied:  errs.ErrForbidden,
	codes.Aborted:           errs.ErrConflict,
	codes.Unavailable:       errs.ErrUnavailable,
	codes.ResourceExhausted: errs.ErrRateLimited,
	codes.AlreadyExists:     errs.ErrAlreadyExists,
}

// fromStatus maps a gRPC error back to the domain sentinel it came from.
// Unknown codes are returned unchanged.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if s, ok := sentinelOf[st.Code()]; ok {
		return fmt.Errorf("%w: %s", s, st.Message())
	}
	return err
}
