package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"Underworld/modules/kit/errx"
	"Underworld/modules/kit/logx"
)

// ServiceName 健康检查里登记的服务名。
const ServiceName = "underworld.world"

type Server struct {
	addr   string
	srv    *gogrpc.Server
	health *health.Server
	log    logx.Logger
}

// NewServer 带 trace 透传、错误码映射与健康检查的 grpc 服务。
func NewServer(addr string, log logx.Logger) *Server {
	log = logx.OrNop(log)
	srv := gogrpc.NewServer(
		gogrpc.ChainUnaryInterceptor(UnaryServerTraceInterceptor(), UnaryServerErrorInterceptor(log)),
		gogrpc.ChainStreamInterceptor(StreamServerTraceInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{addr: addr, srv: srv, health: hs, log: log}
}

// Start 监听并阻塞服务，正常关闭时返回 nil。
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

// Serve 在给定 listener 上服务，测试里配合 bufconn 使用。
func (s *Server) Serve(lis net.Listener) error {
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, gogrpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.srv.Stop()
	}
}

func (s *Server) Server() *gogrpc.Server {
	return s.srv
}

// UnaryServerErrorInterceptor 把 errx 错误映射成 grpc status，系统错误记日志。
func UnaryServerErrorInterceptor(log logx.Logger) gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		// 已经是 grpc status（如健康检查的 NotFound）
		if _, ok := status.FromError(err); ok {
			return resp, err
		}
		logx.ReportError(ctx, log, info.FullMethod, err, zap.String("grpc_method", info.FullMethod))
		return resp, ToStatus(err)
	}
}

// ToStatus errx 大类到 grpc 错误码。
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	var e *errx.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, err.Error())
	}
	code := codes.Internal
	switch e.Kind() {
	case errx.KindValidation:
		code = codes.InvalidArgument
	case errx.KindNotFound:
		code = codes.NotFound
	case errx.KindPersistence:
		code = codes.Unavailable
	}
	return status.Error(code, e.CodeText()+": "+e.Msg())
}

// DialHealth 连接 grpc 服务并返回健康检查客户端。
func DialHealth(addr string) (*gogrpc.ClientConn, healthpb.HealthClient, error) {
	opts := []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithChainUnaryInterceptor(UnaryClientTraceInterceptor()),
		gogrpc.WithChainStreamInterceptor(StreamClientTraceInterceptor()),
	}
	conn, err := gogrpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s failed: %w", addr, err)
	}
	return conn, healthpb.NewHealthClient(conn), nil
}

// Check 查询一次服务健康状态。
func Check(ctx context.Context, client healthpb.HealthClient, timeout time.Duration) (healthpb.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
