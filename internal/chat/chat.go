// Package chat defines the engine's view of the chat platform.
//
// The real client (Discord or otherwise) lives outside this repository.
// Everything the engine needs from it is expressed here as small interfaces
// so the engine can be driven by the in-memory fake in chattest during
// tests and offline recounts.
package chat

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Resolver methods when an identity no longer
// resolves to a live entity (deleted channel, removed role, departed user).
var ErrNotFound = errors.New("chat: entity not found")

// Channel is a resolved conversation stream.
type Channel struct {
	ID   string
	Name string
}

// Role is a resolved permission role.
type Role struct {
	ID   string
	Name string
}

// User is a resolved participant.
type User struct {
	ID   string
	Name string
}

// MessageRef identifies a post without carrying its content.
// Used for edits, pins, and deletions.
type MessageRef struct {
	ChannelID string
	ID        string
}

// Message is a post as delivered by the platform or fetched from history.
type Message struct {
	ID        string
	ChannelID string
	Author    User
	Mentions  []User
	HasImage  bool
	CreatedAt time.Time
}

// Ref returns the message's content-free reference.
func (m Message) Ref() MessageRef {
	return MessageRef{ChannelID: m.ChannelID, ID: m.ID}
}

// Messenger sends and manipulates posts.
// Every call may suspend; implementations contact the platform.
type Messenger interface {
	Send(ctx context.Context, channelID, content string) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, content string) error
	Pin(ctx context.Context, ref MessageRef) error
	Delete(ctx context.Context, ref MessageRef) error
}

// History provides a channel's full post history.
//
// Implementations must return messages in strict chronological order even
// if the platform pages in reverse. The replay engine depends on this
// ordering for determinism.
type History interface {
	ChannelMessages(ctx context.Context, channelID string) ([]Message, error)
}

// Resolver turns persisted identities back into live entities.
// Each resolution is independently failable with ErrNotFound.
type Resolver interface {
	ResolveChannel(ctx context.Context, id string) (Channel, error)
	ResolveRole(ctx context.Context, id string) (Role, error)
	ResolveUser(ctx context.Context, id string) (User, error)
	ResolveMessage(ctx context.Context, channelID, messageID string) (MessageRef, error)
}

// Client is the full collaborator surface the bot consumes.
type Client interface {
	Messenger
	History
	Resolver
}
