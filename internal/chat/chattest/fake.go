// Package chattest provides an in-memory chat platform for tests and
// offline recounts.
package chattest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tremby/discord-tagbot/internal/chat"
)

// Fake implements chat.Client against in-memory fixtures. Channels,
// roles, and users must be registered before they resolve; history is
// whatever has been posted or seeded.
//
// Safe for concurrent use.
type Fake struct {
	mu       sync.Mutex
	channels map[string]chat.Channel
	roles    map[string]chat.Role
	users    map[string]chat.User
	history  map[string][]chat.Message
	pinned   []chat.MessageRef
	deleted  []chat.MessageRef
	sent     map[string][]string
}

// NewFake creates an empty fake platform.
func NewFake() *Fake {
	return &Fake{
		channels: make(map[string]chat.Channel),
		roles:    make(map[string]chat.Role),
		users:    make(map[string]chat.User),
		history:  make(map[string][]chat.Message),
		sent:     make(map[string][]string),
	}
}

// AddChannel registers a channel and returns it.
func (f *Fake) AddChannel(id, name string) chat.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := chat.Channel{ID: id, Name: name}
	f.channels[id] = c
	return c
}

// AddRole registers a role and returns it.
func (f *Fake) AddRole(id, name string) chat.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := chat.Role{ID: id, Name: name}
	f.roles[id] = r
	return r
}

// AddUser registers a user and returns it.
func (f *Fake) AddUser(id, name string) chat.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := chat.User{ID: id, Name: name}
	f.users[id] = u
	return u
}

// Seed appends a message to a channel's history, assigning a UUIDv7
// message ID when none is set. Returns the stored message.
func (f *Fake) Seed(msg chat.Message) chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.Must(uuid.NewV7()).String()
	}
	f.history[msg.ChannelID] = append(f.history[msg.ChannelID], msg)
	return msg
}

// Remove deletes a message from history without recording it as a
// platform deletion. Used to simulate a user deleting their own post.
func (f *Fake) Remove(ref chat.MessageRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(ref)
}

func (f *Fake) removeLocked(ref chat.MessageRef) {
	msgs := f.history[ref.ChannelID]
	for i, m := range msgs {
		if m.ID == ref.ID {
			f.history[ref.ChannelID] = append(msgs[:i:i], msgs[i+1:]...)
			return
		}
	}
}

// SentTo returns the texts sent to a channel, in order.
func (f *Fake) SentTo(channelID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent[channelID]))
	copy(out, f.sent[channelID])
	return out
}

// Deleted returns every reference deleted through the client, in order.
func (f *Fake) Deleted() []chat.MessageRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chat.MessageRef, len(f.deleted))
	copy(out, f.deleted)
	return out
}

// Pinned returns every reference pinned through the client, in order.
func (f *Fake) Pinned() []chat.MessageRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chat.MessageRef, len(f.pinned))
	copy(out, f.pinned)
	return out
}

// Send implements chat.Messenger. Sent messages do not enter history;
// they carry no image and the engine ignores the bot's own posts anyway.
func (f *Fake) Send(_ context.Context, channelID, content string) (chat.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return chat.MessageRef{}, fmt.Errorf("send to %s: %w", channelID, chat.ErrNotFound)
	}
	f.sent[channelID] = append(f.sent[channelID], content)
	return chat.MessageRef{ChannelID: channelID, ID: uuid.Must(uuid.NewV7()).String()}, nil
}

// Edit implements chat.Messenger.
func (f *Fake) Edit(_ context.Context, ref chat.MessageRef, _ string) error {
	return nil
}

// Pin implements chat.Messenger.
func (f *Fake) Pin(_ context.Context, ref chat.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = append(f.pinned, ref)
	return nil
}

// Delete implements chat.Messenger: records the deletion and removes the
// message from history, as the platform would.
func (f *Fake) Delete(_ context.Context, ref chat.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	f.removeLocked(ref)
	return nil
}

// ChannelMessages implements chat.History, returning messages in strict
// chronological order regardless of seeding order.
func (f *Fake) ChannelMessages(_ context.Context, channelID string) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.history[channelID]
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	sortByCreation(out)
	return out, nil
}

// ResolveChannel implements chat.Resolver.
func (f *Fake) ResolveChannel(_ context.Context, id string) (chat.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok {
		return chat.Channel{}, fmt.Errorf("channel %s: %w", id, chat.ErrNotFound)
	}
	return c, nil
}

// ResolveRole implements chat.Resolver.
func (f *Fake) ResolveRole(_ context.Context, id string) (chat.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[id]
	if !ok {
		return chat.Role{}, fmt.Errorf("role %s: %w", id, chat.ErrNotFound)
	}
	return r, nil
}

// ResolveUser implements chat.Resolver.
func (f *Fake) ResolveUser(_ context.Context, id string) (chat.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return chat.User{}, fmt.Errorf("user %s: %w", id, chat.ErrNotFound)
	}
	return u, nil
}

// ResolveMessage implements chat.Resolver.
func (f *Fake) ResolveMessage(_ context.Context, channelID, messageID string) (chat.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.history[channelID] {
		if m.ID == messageID {
			return m.Ref(), nil
		}
	}
	return chat.MessageRef{}, fmt.Errorf("message %s in %s: %w", messageID, channelID, chat.ErrNotFound)
}

func sortByCreation(msgs []chat.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// Msg is a convenience constructor for history messages.
func Msg(channelID, authorID string, at time.Time, image bool, mentionIDs ...string) chat.Message {
	mentions := make([]chat.User, len(mentionIDs))
	for i, id := range mentionIDs {
		mentions[i] = chat.User{ID: id}
	}
	return chat.Message{
		ChannelID: channelID,
		Author:    chat.User{ID: authorID},
		Mentions:  mentions,
		HasImage:  image,
		CreatedAt: at,
	}
}
