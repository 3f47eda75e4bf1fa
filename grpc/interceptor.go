package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// UnaryClientInterceptor returns a client interceptor that attaches the
// current session to every unary RPC. The snapshot is taken per call, so
// sign-in and sign-out between calls is reflected without reconnecting.
//
// Example usage:
//
//	conn, err := grpc.NewClient(addr,
//	    grpc.WithUnaryInterceptor(authgrpc.UnaryClientInterceptor(manager)),
//	)
func UnaryClientInterceptor(source SessionSource) grpc.UnaryClientInterceptor {
	return UnaryClientInterceptorWithConfig(source, nil)
}

// UnaryClientInterceptorWithConfig returns a unary client interceptor using
// the specified config.
func UnaryClientInterceptorWithConfig(source SessionSource, config *Config) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = SessionToOutgoingContextWithConfig(ctx, source.Session(), config)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a client interceptor that attaches the
// current session to every streaming RPC. The snapshot is taken when the
// stream is opened and rides the stream for its lifetime.
func StreamClientInterceptor(source SessionSource) grpc.StreamClientInterceptor {
	return StreamClientInterceptorWithConfig(source, nil)
}

// StreamClientInterceptorWithConfig returns a stream client interceptor using
// the specified config.
func StreamClientInterceptorWithConfig(source SessionSource, config *Config) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx = SessionToOutgoingContextWithConfig(ctx, source.Session(), config)
		return streamer(ctx, desc, cc, method, opts...)
	}
}
