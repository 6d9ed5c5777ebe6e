package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "calendar.v1.BookingService"

// BookingServiceServer — унарные методы календаря. Сообщения —
// google.protobuf.Struct с теми же полями, что и JSON в HTTP API.
type BookingServiceServer interface {
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Preview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(BookingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// FullMethod — полное имя метода для Invoke и перехватчиков.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Submit",
			Handler:    unaryHandler("Submit", BookingServiceServer.Submit),
		},
		{
			MethodName: "Preview",
			Handler:    unaryHandler("Preview", BookingServiceServer.Preview),
		},
		{
			MethodName: "Delete",
			Handler:    unaryHandler("Delete", BookingServiceServer.Delete),
		},
		{
			MethodName: "List",
			Handler:    unaryHandler("List", BookingServiceServer.List),
		},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}
