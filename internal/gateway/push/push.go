package push

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"service-master-dispatch/internal/logx"
)

// NotifyMethod is the full gRPC method name of the push service.
const NotifyMethod = "/push.v1.PushService/Notify"

// Kinds of push messages.
const (
	KindOffer   = "offer"
	KindOutcome = "outcome"
)

// Message is a single push to a master or a client.
type Message struct {
	RecipientID int64
	Kind        string
	Payload     map[string]any
}

// Struct converts the message into the wire payload.
func (m Message) Struct() (*structpb.Struct, error) {
	payload := make(map[string]any, len(m.Payload))
	for k, v := range m.Payload {
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(time.RFC3339Nano)
		}
		payload[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"recipient_id": m.RecipientID,
		"kind":         m.Kind,
		"payload":      payload,
	})
}

// GRPCGateway sends pushes through the push service over gRPC.
type GRPCGateway struct {
	conn grpc.ClientConnInterface
}

// NewGRPCGateway creates a push gateway backed by gRPC.
func NewGRPCGateway(conn grpc.ClientConnInterface) *GRPCGateway {
	if conn == nil {
		return nil
	}
	return &GRPCGateway{conn: conn}
}

// Dial creates a client connection to the push service.
func Dial(target string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("push gateway: dial %s: %w", target, err)
	}
	return conn, nil
}

// Send delivers one message.
func (g *GRPCGateway) Send(ctx context.Context, m Message) error {
	req, err := m.Struct()
	if err != nil {
		return fmt.Errorf("push gateway: encode %s: %w", m.Kind, err)
	}
	var resp structpb.Struct
	if err := g.conn.Invoke(ctx, NotifyMethod, req, &resp); err != nil {
		return fmt.Errorf("push gateway: Notify: %w", err)
	}
	return nil
}

// LogGateway only logs messages. It is used when no push service is configured.
type LogGateway struct {
	logger logx.Logger
}

// NewLogGateway creates a log-only gateway.
func NewLogGateway(logger logx.Logger) *LogGateway {
	if logger == nil {
		logger = logx.Nop()
	}
	return &LogGateway{logger: logger}
}

// Send logs the message.
func (g *LogGateway) Send(_ context.Context, m Message) error {
	g.logger.Info("push",
		logx.String("kind", m.Kind),
		logx.Int64("recipient_id", m.RecipientID),
		logx.Any("payload", m.Payload),
	)
	return nil
}
