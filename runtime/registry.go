package runtime

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"pair-chat/contract"
	"pair-chat/domain/chat"
	"pair-chat/domain/event"
	"pair-chat/errors"
)

type Set map[chat.ConnectionID]struct{}

type session struct {
	mu     sync.Mutex
	closed bool
	userID string
	sink   contract.EventSink
	rooms  map[chat.ConversationID]struct{}
}

// roomShard guards the membership of the rooms hashed onto it.
type roomShard struct {
	mu    sync.RWMutex
	rooms map[chat.ConversationID]Set
}

// PresenceRouter maps live connections to conversation rooms.
// Lock order is always session then shard, and the registry lock is never
// held while acquiring either of them.
type PresenceRouter struct {
	log             *slog.Logger
	deliveryTimeout time.Duration
	telemetryChan   chan<- event.Event

	mu       sync.RWMutex
	sessions map[chat.ConnectionID]*session
	shards   []*roomShard
}

type PresenceStats struct {
	Connections int
	Rooms       int
}

func NewPresenceRouter(log *slog.Logger, shards int, deliveryTimeout time.Duration,
	telemetryChan chan<- event.Event) *PresenceRouter {
	shards = max(shards, 1)
	r := &PresenceRouter{
		log:             log,
		deliveryTimeout: deliveryTimeout,
		telemetryChan:   telemetryChan,
		sessions:        make(map[chat.ConnectionID]*session),
		shards:          make([]*roomShard, shards),
	}
	for i := range r.shards {
		r.shards[i] = &roomShard{rooms: make(map[chat.ConversationID]Set)}
	}
	return r
}

// Connect registers a live connection and the sink its events go to.
// The connection starts in no room: it only receives events once it has
// joined one, or when addressed directly through Send.
// Registering the same connection id twice fails with ErrAlreadyConnected,
// the first registration is left untouched.
func (r *PresenceRouter) Connect(id chat.ConnectionID, userID string, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		return errors.ErrAlreadyConnected
	}
	r.sessions[id] = &session{
		userID: userID,
		sink:   sink,
		rooms:  make(map[chat.ConversationID]struct{}),
	}
	return nil
}

// Join subscribes the connection to the room. Joining twice is a no-op.
func (r *PresenceRouter) Join(id chat.ConnectionID, conversationID chat.ConversationID) error {
	s, ok := r.session(id)
	if !ok {
		return fmt.Errorf("%w: connection %s", errors.ErrNotFound, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: connection %s", errors.ErrNotFound, id)
	}

	shard := r.shard(conversationID)
	shard.mu.Lock()
	members, ok := shard.rooms[conversationID]
	if !ok {
		members = make(Set)
		shard.rooms[conversationID] = members
	}
	members[id] = struct{}{}
	shard.mu.Unlock()

	s.rooms[conversationID] = struct{}{}
	return nil
}

// Leave unsubscribes the connection from the room, if it was in it.
// Both sides of the membership are updated under the session lock, so a
// concurrent Disconnect cannot leave the connection behind in the room.
// The room entry itself is dropped once its last member leaves.
// Leaving a room never joined, or with an unknown connection, is a no-op.
func (r *PresenceRouter) Leave(id chat.ConnectionID, conversationID chat.ConversationID) {
	s, ok := r.session(id)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.removeMember(conversationID, id)
	delete(s.rooms, conversationID)
}

// Disconnect forgets the connection and removes it from every room it joined.
func (r *PresenceRouter) Disconnect(id chat.ConnectionID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for conversationID := range s.rooms {
		r.removeMember(conversationID, id)
	}
	clear(s.rooms)
}

// Evict removes every connection from the room.
// It is called once the conversation has been deleted and its members told
// about it. Connections stay registered and keep their other rooms; only
// this conversation disappears from their membership.
// Evicting an empty or unknown room is a no-op.
func (r *PresenceRouter) Evict(conversationID chat.ConversationID) {
	shard := r.shard(conversationID)
	shard.mu.Lock()
	members := shard.rooms[conversationID]
	delete(shard.rooms, conversationID)
	shard.mu.Unlock()

	for id := range members {
		if s, ok := r.session(id); ok {
			s.mu.Lock()
			delete(s.rooms, conversationID)
			s.mu.Unlock()
		}
	}
}

// Publish hands the event to every connection in the room as of now.
// Each connection gets at most deliveryTimeout to accept it, so a slow
// connection only loses its own copy. Publishing to an empty room is a no-op.
func (r *PresenceRouter) Publish(ctx context.Context, conversationID chat.ConversationID, e event.DomainEvent) int {
	targets := r.sinksForRoom(conversationID)
	if len(targets) == 0 {
		return 0
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for id, sink := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.deliver(ctx, id, sink, e); err == nil {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return delivered
}

// Send delivers the event to one connection only.
func (r *PresenceRouter) Send(ctx context.Context, id chat.ConnectionID, e event.DomainEvent) error {
	s, ok := r.session(id)
	if !ok {
		return fmt.Errorf("%w: connection %s", errors.ErrNotFound, id)
	}
	return r.deliver(ctx, id, s.sink, e)
}

// Members lists the connections currently in the room.
func (r *PresenceRouter) Members(conversationID chat.ConversationID) []chat.ConnectionID {
	shard := r.shard(conversationID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	ids := make([]chat.ConnectionID, 0, len(shard.rooms[conversationID]))
	for id := range shard.rooms[conversationID] {
		ids = append(ids, id)
	}
	return ids
}

// Stats counts the registered connections and the rooms with at least one
// member. Shards are read one after another, so under concurrent joins the
// figures are a close approximation rather than a single snapshot.
func (r *PresenceRouter) Stats() PresenceStats {
	r.mu.RLock()
	stats := PresenceStats{Connections: len(r.sessions)}
	r.mu.RUnlock()
	for _, shard := range r.shards {
		shard.mu.RLock()
		stats.Rooms += len(shard.rooms)
		shard.mu.RUnlock()
	}
	return stats
}

func (r *PresenceRouter) deliver(ctx context.Context, id chat.ConnectionID, sink contract.EventSink, e event.DomainEvent) error {
	deliveryCtx, cancel := context.WithTimeout(ctx, r.deliveryTimeout)
	defer cancel()
	err := sink.Consume(deliveryCtx, e)
	if err != nil {
		r.log.Warn("Delivery dropped", "connection_id", id, "conversation_id", e.ConversationID(), "error", err)
		r.emit(event.Event{
			Type:    event.DeliveryDroppedType,
			Payload: event.DeliveryDropped{ConnectionID: id, ConversationID: e.ConversationID()},
		})
	}
	return err
}

func (r *PresenceRouter) emit(e event.Event) {
	if r.telemetryChan == nil {
		return
	}
	select {
	case r.telemetryChan <- e:
	default:
	}
}

func (r *PresenceRouter) sinksForRoom(conversationID chat.ConversationID) map[chat.ConnectionID]contract.EventSink {
	shard := r.shard(conversationID)
	shard.mu.RLock()
	ids := make([]chat.ConnectionID, 0, len(shard.rooms[conversationID]))
	for id := range shard.rooms[conversationID] {
		ids = append(ids, id)
	}
	shard.mu.RUnlock()

	r.mu.RLock()
	defer r.mu.RUnlock()
	targets := make(map[chat.ConnectionID]contract.EventSink, len(ids))
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			targets[id] = s.sink
		}
	}
	return targets
}

func (r *PresenceRouter) removeMember(conversationID chat.ConversationID, id chat.ConnectionID) {
	shard := r.shard(conversationID)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if members, ok := shard.rooms[conversationID]; ok {
		delete(members, id)
		// If no one is left in the room, remove the room entry entirely
		if len(members) == 0 {
			delete(shard.rooms, conversationID)
		}
	}
}

func (r *PresenceRouter) session(id chat.ConnectionID) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *PresenceRouter) shard(conversationID chat.ConversationID) *roomShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}
