package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/plugin"
)

// dedupeTransform drops rows whose value at key it has already seen,
// tracked in a Redis set so dedupe state survives across executions.
type dedupeTransform struct {
	client *redis.Client
	setKey string
	field  string
}

// NewDedupeTransform builds a "dedupe" transform plugin. Config keys:
// addr, set_key, field.
func NewDedupeTransform(cfg plugin.Config) (plugin.Transform, error) {
	addr := cfg.GetString("addr", "localhost:6379")
	setKey, err := cfg.RequireString("set_key")
	if err != nil {
		return nil, err
	}
	field, err := cfg.RequireString("field")
	if err != nil {
		return nil, err
	}

	return &dedupeTransform{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		setKey: setKey,
		field:  field,
	}, nil
}

func (p *dedupeTransform) Transform(ctx *plugin.Context, in core.Frame) (core.Frame, error) {
	rf, ok := in.(*core.RowFrame)
	if !ok {
		return nil, fmt.Errorf("dedupe transform requires a *core.RowFrame, got %T", in)
	}

	out := make([]map[string]any, 0, len(rf.Rows))
	for _, row := range rf.Rows {
		key := fmt.Sprintf("%v", row[p.field])
		added, err := p.client.SAdd(ctx, p.setKey, key).Result()
		if err != nil {
			return nil, err
		}
		if added == 1 {
			out = append(out, row)
		}
	}

	return core.NewRowFrame(rf.Columns, out), nil
}

// cacheLoad writes each row, keyed by a declared field, as a JSON blob
// under a Redis hash.
type cacheLoad struct {
	client  *redis.Client
	hashKey string
	keyCol  string
}

// NewCacheLoad builds a "cache" load plugin. Config keys: addr,
// hash_key, key_column.
func NewCacheLoad(cfg plugin.Config) (plugin.Load, error) {
	addr := cfg.GetString("addr", "localhost:6379")
	hashKey, err := cfg.RequireString("hash_key")
	if err != nil {
		return nil, err
	}
	keyCol, err := cfg.RequireString("key_column")
	if err != nil {
		return nil, err
	}

	return &cacheLoad{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		hashKey: hashKey,
		keyCol:  keyCol,
	}, nil
}

func (p *cacheLoad) Load(ctx *plugin.Context, in core.Frame) (int, error) {
	rf, ok := in.(*core.RowFrame)
	if !ok {
		return 0, fmt.Errorf("cache load requires a *core.RowFrame, got %T", in)
	}

	written := 0
	for _, row := range rf.Rows {
		key := fmt.Sprintf("%v", row[p.keyCol])
		blob, err := json.Marshal(row)
		if err != nil {
			return written, err
		}
		if err := p.client.HSet(ctx, p.hashKey, key, blob).Err(); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
