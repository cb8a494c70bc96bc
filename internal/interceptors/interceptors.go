// Package interceptors — серверные gRPC-интерсепторы forum-service:
// логирование, перехват паник, таймаут и аутентификация по bearer-токену.
package interceptors

import (
	"context"

	"google.golang.org/grpc"
)

// wrappedStream подменяет контекст серверного стрима.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }

func withContext(ss grpc.ServerStream, ctx context.Context) grpc.ServerStream {
	return &wrappedStream{ServerStream: ss, ctx: ctx}
}
