package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// GenerateMethod is the full name of the unary method served by an insight agent.
// Request and response are google.protobuf.Struct values:
// {prompt, user_id, session_id} -> {text} or {error}.
const GenerateMethod = "/insight.v1.InsightService/Generate"

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
	errAgentResponse            = errors.New("insight agent returned error")
)

// GrpcConfig holds configuration for the agent client.
type GrpcConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGrpcConfig returns default configuration for addr.
func DefaultGrpcConfig(addr string) GrpcConfig {
	return GrpcConfig{
		Address:          addr,
		ConnectTimeout:   5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// GrpcGenerator sends prompts to a sidecar insight agent over gRPC.
type GrpcGenerator struct {
	conn   *grpc.ClientConn
	cfg    GrpcConfig
	logger *slog.Logger
}

// NewGrpcGenerator connects to the agent at cfg.Address and waits until the
// connection is ready so bad endpoints fail at startup.
func NewGrpcGenerator(cfg GrpcConfig, logger *slog.Logger, opts ...grpc.DialOption) (*GrpcGenerator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Address == "" {
		return nil, errors.New("insight agent address is required")
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, opts...)

	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to insight agent at %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("insight agent at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to insight agent", "address", cfg.Address)

	return &GrpcGenerator{conn: conn, cfg: cfg, logger: logger}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Generate performs one unary call to the agent.
func (g *GrpcGenerator) Generate(ctx context.Context, req Request) (string, error) {
	in, err := structpb.NewStruct(map[string]any{
		"prompt":     req.Prompt,
		"user_id":    req.UserID,
		"session_id": req.SessionID,
	})
	if err != nil {
		return "", fmt.Errorf("encode agent request: %w", err)
	}

	if g.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.RequestTimeout)
		defer cancel()
	}

	out := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, GenerateMethod, in, out); err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}

	fields := out.GetFields()
	if msg := fields["error"].GetStringValue(); msg != "" {
		return "", fmt.Errorf("%w: %s", errAgentResponse, msg)
	}
	return fields["text"].GetStringValue(), nil
}

// Close closes the gRPC connection.
func (g *GrpcGenerator) Close() error {
	if g.conn == nil {
		return nil
	}
	if err := g.conn.Close(); err != nil {
		g.logger.Warn("failed to close gRPC connection", "error", err)
		return err
	}
	return nil
}
