package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jcmexdev/bookshop-checkout/internal/customer"
)

// Store is the session cart port the HTTP layer depends on. The settlement
// engine never sees it; it receives a Snapshot value instead.
type Store interface {
	Get(ctx context.Context, sessionID string) ([]Line, error)
	Add(ctx context.Context, sessionID string, line Line, maxQuantity int) (capped bool, err error)
	Remove(ctx context.Context, sessionID string, itemType ItemType, itemID int64) (found bool, err error)
	Replace(ctx context.Context, sessionID string, line Line) error
	Clear(ctx context.Context, sessionID string) error

	StageCheckoutInfo(ctx context.Context, sessionID string, info customer.Info) error
	StagedCheckoutInfo(ctx context.Context, sessionID string) (*customer.Info, error)
	ClearCheckoutInfo(ctx context.Context, sessionID string) error
}

// Staged checkout info expires on its own; an abandoned checkout should not
// leave contact details in Redis indefinitely.
const stagingTTL = 30 * time.Minute

type redisStore struct {
	client      *redis.Client
	serviceName string
}

// NewRedisStore returns a Store backed by the Redis instance at addr.
// Keys are namespaced as <service>:<operation>:<session>.
func NewRedisStore(addr, serviceName string) Store {
	return &redisStore{
		client:      redis.NewClient(&redis.Options{Addr: addr}),
		serviceName: serviceName,
	}
}

func (s *redisStore) key(operation, sessionID string) string {
	return fmt.Sprintf("%s:%s:%s", s.serviceName, operation, sessionID)
}

func (s *redisStore) Get(ctx context.Context, sessionID string) ([]Line, error) {
	raw, err := s.client.Get(ctx, s.key("cart", sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: get %q: %w", sessionID, err)
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("cart: decode %q: %w", sessionID, err)
	}
	return lines, nil
}

func (s *redisStore) save(ctx context.Context, sessionID string, lines []Line) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("cart: encode %q: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, s.key("cart", sessionID), raw, 0).Err(); err != nil {
		return fmt.Errorf("cart: save %q: %w", sessionID, err)
	}
	return nil
}

// Add appends the line, or increments the quantity of an existing line with
// the same identity. maxQuantity caps the book quantity at available stock;
// pass 0 for uncapped item types (courses, bundles). Reports whether the cap
// prevented the increment.
func (s *redisStore) Add(ctx context.Context, sessionID string, line Line, maxQuantity int) (bool, error) {
	lines, err := s.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}

	for i := range lines {
		if lines[i].ItemID == line.ItemID && lines[i].ItemType == line.ItemType {
			if maxQuantity > 0 && lines[i].Quantity+line.Quantity > maxQuantity {
				return true, nil
			}
			lines[i].Quantity += line.Quantity
			return false, s.save(ctx, sessionID, lines)
		}
	}

	lines = append(lines, line)
	return false, s.save(ctx, sessionID, lines)
}

func (s *redisStore) Remove(ctx context.Context, sessionID string, itemType ItemType, itemID int64) (bool, error) {
	lines, err := s.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}

	kept := lines[:0]
	for _, l := range lines {
		if l.ItemID == itemID && l.ItemType == itemType {
			continue
		}
		kept = append(kept, l)
	}
	if len(kept) == len(lines) {
		return false, nil
	}
	return true, s.save(ctx, sessionID, kept)
}

// Replace implements buy-now: the cart becomes exactly the given line.
func (s *redisStore) Replace(ctx context.Context, sessionID string, line Line) error {
	return s.save(ctx, sessionID, []Line{line})
}

func (s *redisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key("cart", sessionID)).Err(); err != nil {
		return fmt.Errorf("cart: clear %q: %w", sessionID, err)
	}
	return nil
}

func (s *redisStore) StageCheckoutInfo(ctx context.Context, sessionID string, info customer.Info) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("cart: encode checkout info %q: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, s.key("checkout", sessionID), raw, stagingTTL).Err(); err != nil {
		return fmt.Errorf("cart: stage checkout info %q: %w", sessionID, err)
	}
	return nil
}

func (s *redisStore) StagedCheckoutInfo(ctx context.Context, sessionID string) (*customer.Info, error) {
	raw, err := s.client.Get(ctx, s.key("checkout", sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: staged checkout info %q: %w", sessionID, err)
	}

	var info customer.Info
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("cart: decode checkout info %q: %w", sessionID, err)
	}
	return &info, nil
}

func (s *redisStore) ClearCheckoutInfo(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key("checkout", sessionID)).Err(); err != nil {
		return fmt.Errorf("cart: clear checkout info %q: %w", sessionID, err)
	}
	return nil
}
