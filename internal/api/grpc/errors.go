package grpc

import (
	"errors"
	"sort"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
)

const errorDomain = "rental.v1"

// toStatus maps domain errors to gRPC status codes. Anything unrecognised is
// logged and reported as Internal without leaking the cause.
func toStatus(method string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var (
		authErr       *domain.AuthorizationError
		transitionErr *domain.InvalidTransitionError
		validationErr *domain.ValidationError
		dependencyErr *domain.ExternalDependencyError
		consistency   *domain.ConsistencyViolation
	)

	switch {
	case errors.As(err, &authErr):
		return status.Error(codes.PermissionDenied, authErr.Error())

	case errors.As(err, &transitionErr):
		st := status.New(codes.FailedPrecondition, transitionErr.Error()+" (current_status="+string(transitionErr.Current)+")")
		return withDetails(st, &errdetails.ErrorInfo{
			Reason: "INVALID_TRANSITION",
			Domain: errorDomain,
			Metadata: map[string]string{
				"current_status": string(transitionErr.Current),
				"command":        string(transitionErr.Command),
			},
		})

	case errors.As(err, &validationErr):
		st := status.New(codes.InvalidArgument, validationErr.Error())
		fields := make([]string, 0, len(validationErr.Fields))
		for f := range validationErr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		violations := make([]*errdetails.BadRequest_FieldViolation, 0, len(fields))
		for _, f := range fields {
			violations = append(violations, &errdetails.BadRequest_FieldViolation{Field: f, Description: validationErr.Fields[f]})
		}
		return withDetails(st, &errdetails.BadRequest{FieldViolations: violations})

	case errors.As(err, &dependencyErr):
		logger.Error("Dependency failure", "method", method, "dependency", dependencyErr.Dependency, "error", dependencyErr.Err)
		return status.Error(codes.Unavailable, dependencyErr.Error())

	case errors.As(err, &consistency):
		logger.Error("Consistency violation", "method", method, "invariant", consistency.Invariant)
		return status.Error(codes.Internal, consistency.Error())

	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	}

	logger.Error("Unhandled error", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func withDetails(st *status.Status, details ...protoadapt.MessageV1) error {
	detailed, err := st.WithDetails(details...)
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}
