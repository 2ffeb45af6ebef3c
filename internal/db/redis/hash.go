package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/absola/internal/db"
)

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// HGetAllMulti fetches all fields for multiple hashes in a single DoMulti round-trip.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]map[string]string, len(results))

	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = m
	}

	return out, nil
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	cmd := s.b().Exists().Key(key).Build()
	count, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return count > 0, nil
}

// hsetIfEqual runs the compare and the write server-side, so a concurrent DEL
// cannot be followed by a write that recreates a partial hash.
var hsetIfEqual = rueidis.NewLuaScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {-1, ''}
end
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if not cur then
  cur = ''
end
if cur ~= ARGV[2] then
  return {0, cur}
end
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
return {1, cur}
`)

// HSetIfEqual sets fields when the hash exists and field currently equals expected.
func (s *Store) HSetIfEqual(
	ctx context.Context, key, field, expected string, fields map[string]string,
) (string, bool, error) {
	if len(fields) == 0 {
		return "", false, &db.Error{Op: db.OpHSetIf, Err: fmt.Errorf("no fields for %s", key)}
	}

	args := make([]string, 0, 2+2*len(fields))
	args = append(args, field, expected)
	for k, v := range fields {
		args = append(args, k, v)
	}

	reply, err := hsetIfEqual.Exec(ctx, s.client, []string{key}, args).ToArray()
	if err != nil {
		return "", false, &db.Error{Op: db.OpHSetIf, Err: err}
	}
	if len(reply) != 2 {
		return "", false, &db.Error{Op: db.OpHSetIf, Err: fmt.Errorf("unexpected reply length %d", len(reply))}
	}

	code, err := reply[0].AsInt64()
	if err != nil {
		return "", false, &db.Error{Op: db.OpHSetIf, Err: err}
	}
	if code < 0 {
		return "", false, db.ErrKeyNotFound
	}
	current, err := reply[1].ToString()
	if err != nil {
		return "", false, &db.Error{Op: db.OpHSetIf, Err: err}
	}
	return current, code == 1, nil
}
