package websocket

import (
	"context"
	"testing"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnConnecting_Anonymous(t *testing.T) {
	reply, err := onConnecting(context.Background(), centrifuge.ConnectEvent{})

	require.NoError(t, err)
	require.NotNil(t, reply.Credentials)
	assert.Empty(t, reply.Credentials.UserID)
	assert.Len(t, reply.Subscriptions, 1)
	assert.Contains(t, reply.Subscriptions, "voting")
}

func TestOnConnecting_IdentifiedUser(t *testing.T) {
	userID := uuid.New()
	ctx := centrifuge.SetCredentials(context.Background(), &centrifuge.Credentials{UserID: userID.String()})

	reply, err := onConnecting(ctx, centrifuge.ConnectEvent{})

	require.NoError(t, err)
	assert.Nil(t, reply.Credentials, "credentials from the context are kept")
	assert.Contains(t, reply.Subscriptions, "voting")
	assert.Contains(t, reply.Subscriptions, "user:"+userID.String())
}

func TestOnConnecting_InvalidUserID(t *testing.T) {
	ctx := centrifuge.SetCredentials(context.Background(), &centrifuge.Credentials{UserID: "not-a-uuid"})

	_, err := onConnecting(ctx, centrifuge.ConnectEvent{})

	assert.Equal(t, centrifuge.DisconnectInvalidToken, err)
}

func TestCanSubscribe(t *testing.T) {
	owner := uuid.NewString()

	tests := []struct {
		name    string
		userID  string
		channel string
		want    bool
	}{
		{"voting anonymous", "", "voting", true},
		{"voting identified", owner, "voting", true},
		{"own user channel", owner, "user:" + owner, true},
		{"other user channel", owner, "user:" + uuid.NewString(), false},
		{"user channel anonymous", "", "user:", false},
		{"unknown channel", owner, "admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canSubscribe(tt.userID, tt.channel))
		})
	}
}

func TestParseCentrifugeLogLevel(t *testing.T) {
	assert.Equal(t, centrifuge.LogLevelDebug, parseCentrifugeLogLevel("debug"))
	assert.Equal(t, centrifuge.LogLevelWarn, parseCentrifugeLogLevel("warn"))
	assert.Equal(t, centrifuge.LogLevelError, parseCentrifugeLogLevel("error"))
	assert.Equal(t, centrifuge.LogLevelInfo, parseCentrifugeLogLevel("bogus"))
}

func TestNewNodePublisher(t *testing.T) {
	node, err := NewNode(nil, "error")
	require.NoError(t, err)
	require.NoError(t, node.Run())
	t.Cleanup(func() { _ = node.Shutdown(context.Background()) })

	assert.NoError(t, NewNodePublisher(node).Publish("voting", []byte(`{"event":"vote:update"}`)))
}
