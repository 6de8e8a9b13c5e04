package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor 記錄每次 unary 呼叫的 method、code 與耗時
// 伺服端錯誤 (Unavailable/Internal) 以 Error 記錄，其餘以 Info
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		level := zapcore.InfoLevel
		if code == codes.Unavailable || code == codes.Internal || code == codes.Unknown {
			level = zapcore.ErrorLevel
		}
		if ce := logger.Check(level, "grpc call"); ce != nil {
			fields := []zap.Field{
				zap.String("method", info.FullMethod),
				zap.Stringer("code", code),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			ce.Write(fields...)
		}
		return resp, err
	}
}
