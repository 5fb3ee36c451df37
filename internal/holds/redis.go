package holds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/sortsys/pkg/models"
)

// releaseScript deletes the slot claim only while it still belongs to the hold
// being released, then deletes the hold record.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("DEL", KEYS[1])
end
return redis.call("DEL", KEYS[2])
`)

// RedisStore shares holds between operator processes. The slot claim is an
// atomic SET NX, so two processes can never both create a hold on one slot.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	ctx    context.Context
	now    func() time.Time
}

// NewRedisStore creates a store using client. Keys are namespaced by prefix.
func NewRedisStore(ctx context.Context, client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		ctx:    ctx,
		now:    time.Now,
	}
}

func (s *RedisStore) slotKey(loc models.Location, slot uint32) string {
	return fmt.Sprintf("%sslot:%s:%d:%d:%d:%d", s.prefix, loc.Dim, loc.Vec3.X, loc.Vec3.Y, loc.Vec3.Z, slot)
}

func (s *RedisStore) holdKey(id string) string {
	return s.prefix + "hold:" + id
}

func (s *RedisStore) ExistingHold(loc models.Location, slot uint32) (Hold, bool) {
	id, err := s.client.Get(s.ctx, s.slotKey(loc, slot)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Warning: Failed to read hold for %s slot %d: %v", loc, slot, err)
		}
		return Hold{}, false
	}
	if h, ok := s.Get(id); ok {
		return h, true
	}
	// The slot is claimed but the record is not written yet.
	return Hold{ID: id, Location: loc, Slot: slot}, true
}

func (s *RedisStore) Create(loc models.Location, slot uint32, openFrom models.Vec3) (Hold, error) {
	h := newHold(loc, slot, openFrom, s.now(), s.ttl)
	ok, err := s.client.SetNX(s.ctx, s.slotKey(loc, slot), h.ID, s.ttl).Result()
	if err != nil {
		return Hold{}, fmt.Errorf("failed to claim slot: %w", err)
	}
	if !ok {
		return Hold{}, ErrAlreadyHeld
	}

	record, err := json.Marshal(h)
	if err != nil {
		_ = s.client.Del(s.ctx, s.slotKey(loc, slot)).Err()
		return Hold{}, err
	}
	if err := s.client.Set(s.ctx, s.holdKey(h.ID), record, s.ttl).Err(); err != nil {
		_ = s.client.Del(s.ctx, s.slotKey(loc, slot)).Err()
		return Hold{}, fmt.Errorf("failed to store hold: %w", err)
	}
	return h, nil
}

func (s *RedisStore) Get(id string) (Hold, bool) {
	record, err := s.client.Get(s.ctx, s.holdKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Warning: Failed to read hold %s: %v", id, err)
		}
		return Hold{}, false
	}
	var h Hold
	if err := json.Unmarshal(record, &h); err != nil {
		log.Printf("Warning: Corrupt hold record %s: %v", id, err)
		return Hold{}, false
	}
	return h, true
}

func (s *RedisStore) Release(id string) error {
	h, ok := s.Get(id)
	if !ok {
		return ErrHoldNotFound
	}
	keys := []string{s.slotKey(h.Location, h.Slot), s.holdKey(id)}
	if err := releaseScript.Run(s.ctx, s.client, keys, id).Err(); err != nil {
		return fmt.Errorf("failed to release hold: %w", err)
	}
	return nil
}

func (s *RedisStore) Len() int {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(s.ctx, cursor, s.prefix+"slot:*", 256).Result()
		if err != nil {
			log.Printf("Warning: Failed to count holds: %v", err)
			return total
		}
		total += len(keys)
		if next == 0 {
			return total
		}
		cursor = next
	}
}
