package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"
	"github.com/pscheid92/votepulse/internal/adapter/metrics"
	"github.com/pscheid92/votepulse/internal/domain"
)

// NewNode creates a Centrifuge node serving the voting channel to everyone
// and a private user channel to identified clients.
// Its broker stays in-process; cross-instance fan-out happens through the domain bus and the Relay.
func NewNode(wsMetrics *metrics.WebSocketMetrics, logLevel string) (*centrifuge.Node, error) {
	conf := centrifuge.Config{LogLevel: parseCentrifugeLogLevel(logLevel), LogHandler: slogHandler}
	node, err := centrifuge.New(conf)
	if err != nil {
		return nil, fmt.Errorf("create centrifuge node: %w", err)
	}

	node.OnConnecting(onConnecting)
	node.OnConnect(onConnect(wsMetrics))

	return node, nil
}

type nodePublisher struct {
	node *centrifuge.Node
}

// NewNodePublisher adapts a node to the Relay's Publisher.
func NewNodePublisher(node *centrifuge.Node) Publisher {
	return nodePublisher{node: node}
}

func (p nodePublisher) Publish(channel string, data []byte) error {
	if _, err := p.node.Publish(channel, data); err != nil {
		return fmt.Errorf("publish to channel %s: %w", channel, err)
	}
	return nil
}

func onConnecting(ctx context.Context, _ centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
	subs := map[string]centrifuge.SubscribeOptions{
		domain.TopicVoting: {},
	}

	reply := centrifuge.ConnectReply{Subscriptions: subs}

	cred, ok := centrifuge.GetCredentials(ctx)
	if !ok || cred.UserID == "" {
		reply.Credentials = &centrifuge.Credentials{UserID: ""}
		return reply, nil
	}

	userID, err := uuid.Parse(cred.UserID)
	if err != nil {
		slog.Warn("Invalid websocket user ID", "user_id", cred.UserID, "error", err)
		return centrifuge.ConnectReply{}, centrifuge.DisconnectInvalidToken
	}

	subs[domain.UserTopic(userID)] = centrifuge.SubscribeOptions{}
	return reply, nil
}

func onConnect(wsMetrics *metrics.WebSocketMetrics) func(client *centrifuge.Client) {
	return func(client *centrifuge.Client) {
		slog.Debug("Client connected", "client_id", client.ID(), "user_id", client.UserID())

		if wsMetrics != nil {
			wsMetrics.ActiveConnections.Inc()
		}

		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if !canSubscribe(client.UserID(), e.Channel) {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}
			cb(centrifuge.SubscribeReply{}, nil)
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			slog.Debug("Client disconnected", "client_id", client.ID(), "reason", e.Reason)
			if wsMetrics != nil {
				wsMetrics.ActiveConnections.Dec()
			}
		})
	}
}

// canSubscribe allows the public voting channel, and a user channel only to its owner.
func canSubscribe(userID, channel string) bool {
	if channel == domain.TopicVoting {
		return true
	}
	owner, ok := strings.CutPrefix(channel, "user:")
	return ok && userID != "" && owner == userID
}

func slogHandler(entry centrifuge.LogEntry) {
	attrs := make([]any, 0, len(entry.Fields)*2)
	for k, v := range entry.Fields {
		attrs = append(attrs, k, v)
	}
	switch entry.Level {
	case centrifuge.LogLevelDebug, centrifuge.LogLevelTrace:
		slog.Debug(entry.Message, attrs...)
	case centrifuge.LogLevelInfo:
		slog.Info(entry.Message, attrs...)
	case centrifuge.LogLevelWarn:
		slog.Warn(entry.Message, attrs...)
	case centrifuge.LogLevelError:
		slog.Error(entry.Message, attrs...)
	case centrifuge.LogLevelNone:
		// EMPTY
	}
}

func parseCentrifugeLogLevel(level string) centrifuge.LogLevel {
	switch level {
	case "debug":
		return centrifuge.LogLevelDebug
	case "warn":
		return centrifuge.LogLevelWarn
	case "error":
		return centrifuge.LogLevelError
	default:
		return centrifuge.LogLevelInfo
	}
}
