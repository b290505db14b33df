package redis

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/tagdex/internal/db"
)

// Both scripts run atomically on the key, so concurrent element edits never overwrite
// each other the way a read-modify-write of the whole array would.
// Replies: -2 missing key, -1 path is not an array.
const (
	arrAddUniqueScript = `
if redis.call('EXISTS', KEYS[1]) == 0 then return -2 end
local idx = redis.call('JSON.ARRINDEX', KEYS[1], ARGV[1], ARGV[2])
if type(idx) ~= 'table' or idx[1] == nil then
  redis.call('JSON.SET', KEYS[1], ARGV[1], '[' .. ARGV[2] .. ']')
  return 1
end
if type(idx[1]) ~= 'number' then return -1 end
if idx[1] >= 0 then return 0 end
redis.call('JSON.ARRAPPEND', KEYS[1], ARGV[1], ARGV[2])
return 1
`

	arrRemoveScript = `
if redis.call('EXISTS', KEYS[1]) == 0 then return -2 end
local removed = 0
for i = 2, #ARGV do
  while true do
    local idx = redis.call('JSON.ARRINDEX', KEYS[1], ARGV[1], ARGV[i])
    if type(idx) ~= 'table' or type(idx[1]) ~= 'number' or idx[1] < 0 then break end
    redis.call('JSON.ARRPOP', KEYS[1], ARGV[1], idx[1])
    removed = removed + 1
  end
end
return removed
`
)

// JSONArrAddUnique appends value (JSON-encoded) to the array at path unless an equal
// element is already there. A missing array is created. Returns false if nothing changed.
func (s *Store) JSONArrAddUnique(ctx context.Context, key, path string, value []byte) (bool, error) {
	n, err := s.evalArray(ctx, db.OpJSONArrAdd, arrAddUniqueScript, key, path, value)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// JSONArrRemove deletes every element equal to one of values (JSON-encoded) from the
// array at path and returns how many were removed.
func (s *Store) JSONArrRemove(ctx context.Context, key, path string, values ...[]byte) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	n, err := s.evalArray(ctx, db.OpJSONArrRemove, arrRemoveScript, key, path, values...)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) evalArray(ctx context.Context, op, script, key, path string, values ...[]byte) (int64, error) {
	args := make([]string, 0, len(values)+1)
	args = append(args, path)
	for _, v := range values {
		args = append(args, string(v))
	}
	cmd := s.b().Eval().Script(script).Numkeys(1).Key(key).Arg(args...).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, s.opErr(op, err)
	}
	switch n {
	case -2:
		return 0, db.ErrKeyNotFound
	case -1:
		return 0, &db.Error{Op: op, Err: fmt.Errorf("%s at %s is not an array", path, key)}
	}
	return n, nil
}
