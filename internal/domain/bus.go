package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TopicVoting      = "voting"
	UserTopicPattern = "user:*"

	EventVoteUpdate = "vote:update"
)

// UserTopic is the per-user topic. Reserved for adjacent subsystems; the vote pipeline never publishes to it.
func UserTopic(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// Handler receives messages delivered to a subscription.
type Handler func(topic string, payload []byte)

// Bus is the topic-addressed message bus used for real-time fan-out.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe delivers messages for topics matching pattern until ctx is done.
	Subscribe(ctx context.Context, pattern string, handler Handler) error
}

// VoteUpdate is the payload broadcast after each committed vote.
type VoteUpdate struct {
	IdeaID    uuid.UUID
	VoteCount Weight
	Weight    Weight
}

// VoteUpdateMessage is the wire form of a VoteUpdate.
type VoteUpdateMessage struct {
	Event     string    `json:"event"`
	IdeaID    uuid.UUID `json:"ideaId"`
	VoteCount Weight    `json:"voteCount"`
	Weight    Weight    `json:"weight"`
	SentAt    time.Time `json:"sentAt"`
}
