package custom

import (
	"context"
	"errors"

	"github.com/adrianliechti/forge/pkg/planner"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	serviceName = "forge.planner.Planner"

	planMethod = "/" + serviceName + "/Plan"
)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*planner.Provider)(nil),

	Methods: []grpc.MethodDesc{
		{
			MethodName: "Plan",
			Handler:    planHandler,
		},
	},

	Streams:  []grpc.StreamDesc{},
	Metadata: "planner.json",
}

// Register exposes a planner on a gRPC server. Clients must use the json
// content subtype, which this package registers.
func Register(s grpc.ServiceRegistrar, p planner.Provider) {
	s.RegisterService(&serviceDesc, p)
}

func planHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(planner.Request)

	if err := dec(in); err != nil {
		return nil, err
	}

	handler := func(ctx context.Context, req any) (any, error) {
		plan, err := srv.(planner.Provider).Plan(ctx, req.(*planner.Request))

		if err != nil {
			return nil, toStatus(err)
		}

		return plan, nil
	}

	if interceptor == nil {
		return handler(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: planMethod,
	}

	return interceptor(ctx, in, info, handler)
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	if errors.Is(err, planner.ErrPlanningFailed) {
		return status.Error(codes.FailedPrecondition, err.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}

	return status.Error(codes.Internal, err.Error())
}

func fromStatus(err error) error {
	s, ok := status.FromError(err)

	if !ok {
		return err
	}

	switch s.Code() {
	case codes.FailedPrecondition, codes.InvalidArgument:
		return errors.Join(planner.ErrPlanningFailed, errors.New(s.Message()))
	}

	return err
}
