package redis

import (
	"context"
	"errors"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/solrsync/internal/db"
)

var errTxAborted = errors.New("transaction aborted")

// HReplace atomically replaces a hash with fields (MULTI, DEL, HSET, EXEC).
func (s *Store) HReplace(ctx context.Context, key string, fields map[string]string) error {
	return s.HReplaceMulti(ctx, []db.HashSetItem{{Key: key, Fields: fields}})
}

// HReplaceMulti replaces several hashes with one MULTI/EXEC per hash slot.
// A standalone server sees a single transaction. On a cluster the batch is
// atomic per slot only, and a failed slot stops the remaining ones.
func (s *Store) HReplaceMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, group := range groupBySlot(items, s.slot) {
		if err := s.replaceTx(ctx, group); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) replaceTx(ctx context.Context, items []db.HashSetItem) error {
	cmds := make(rueidis.Commands, 0, 2*len(items)+2)
	cmds = append(cmds, s.b().Multi().Build())
	for _, item := range items {
		cmds = append(cmds, s.b().Del().Key(item.Key).Build())
		if len(item.Fields) == 0 {
			continue
		}
		cmd := s.b().Hset().Key(item.Key).FieldValue()
		for k, v := range item.Fields {
			cmd = cmd.FieldValue(k, v)
		}
		cmds = append(cmds, cmd.Build())
	}
	cmds = append(cmds, s.b().Exec().Build())

	results := s.client.DoMulti(ctx, cmds...)
	for _, res := range results {
		if err := res.Error(); err != nil {
			return s.txError(items, err)
		}
	}

	// EXEC reports queued command failures inside its reply.
	replies, err := results[len(results)-1].ToArray()
	if err != nil {
		return s.txError(items, err)
	}
	for i := range replies {
		if err := replies[i].Error(); err != nil {
			return s.txError(items, err)
		}
	}
	return nil
}

func (s *Store) txError(items []db.HashSetItem, err error) error {
	key := ""
	if len(items) == 1 {
		key = items[0].Key
	}
	if rueidis.IsRedisNil(err) {
		err = errTxAborted
	}
	return &db.Error{Op: db.OpHSet, Key: key, Err: err}
}

// slot returns the cluster hash slot of key as computed by the client's
// builder. Standalone clients report the same slot for every key.
func (s *Store) slot(key string) uint16 {
	cmd := s.b().Del().Key(key).Build()
	return cmd.Slot()
}

// groupBySlot splits items by hash slot, keeping first-seen order.
func groupBySlot(items []db.HashSetItem, slotOf func(string) uint16) [][]db.HashSetItem {
	var (
		groups [][]db.HashSetItem
		index  = make(map[uint16]int)
	)
	for _, item := range items {
		sl := slotOf(item.Key)
		i, ok := index[sl]
		if !ok {
			i = len(groups)
			index[sl] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], item)
	}
	return groups
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Key: key, Err: err}
	}
	return m, nil
}

// HGetAllMulti fetches all fields for multiple hashes in a single DoMulti round-trip.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make(rueidis.Commands, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]map[string]string, len(results))

	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Key: keys[i], Err: err}
		}
		out[i] = m
	}

	return out, nil
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Key: key, Err: err}
	}
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	cmd := s.b().Exists().Key(key).Build()
	count, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Key: key, Err: err}
	}
	return count > 0, nil
}

// Scan walks keys matching pattern and hands them to fn one SCAN page at a
// time. count is the SCAN COUNT hint. Iteration stops at the first error fn returns.
func (s *Store) Scan(ctx context.Context, pattern string, count int64, fn func(keys []string) error) error {
	if count <= 0 {
		count = 100
	}
	var cursor uint64
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(count).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return &db.Error{Op: db.OpScan, Key: pattern, Err: err}
		}
		if len(res.Elements) > 0 {
			if err := fn(res.Elements); err != nil {
				return err
			}
		}
		cursor = res.Cursor
		if cursor == 0 {
			return nil
		}
	}
}
