// Package shardworker applies a configured predicate chain to one input
// shard, writing surviving records to an output shard and returning a
// named-counter map. One worker processes one shard at a time; the filter
// orchestrator (internal/filterpipe) is what fans workers out across
// shards concurrently.
package shardworker

import (
	"context"
	"fmt"
	"io"

	"webcorpus/internal/predicate"
	"webcorpus/internal/record"
)

// Counters is an insertion-ordered tag -> count map, monoidal under
// element-wise addition (see Merge).
type Counters struct {
	order  []string
	counts map[string]int64
}

// NewCounters returns an empty Counters ready for Add.
func NewCounters() *Counters {
	return &Counters{counts: make(map[string]int64)}
}

// Add increments tag by delta, recording first-seen insertion order.
func (c *Counters) Add(tag string, delta int64) {
	if _, ok := c.counts[tag]; !ok {
		c.order = append(c.order, tag)
	}
	c.counts[tag] += delta
}

// Get returns the current count for tag.
func (c *Counters) Get(tag string) int64 { return c.counts[tag] }

// Tags returns tags in first-seen insertion order.
func (c *Counters) Tags() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Merge adds every tag in other into c, in other's insertion order,
// appending newly seen tags after c's existing ones.
func (c *Counters) Merge(other *Counters) {
	for _, tag := range other.Tags() {
		c.Add(tag, other.Get(tag))
	}
}

// Process streams conversion records from in, runs chain against each in
// configured order, and writes records that pass every step to out.
// "total" and "passed" are always present in the returned Counters, even
// if zero. Processing is idempotent: the same input shard and chain always
// produce byte-identical output.
func Process(ctx context.Context, in, out string, chain predicate.Chain) (*Counters, error) {
	counters := NewCounters()
	counters.Add("total", 0)
	counters.Add("passed", 0)

	reader, err := record.OpenShard(in)
	if err != nil {
		return counters, fmt.Errorf("shardworker: open %s: %w", in, err)
	}
	defer reader.Close()

	sink, err := record.NewSink(out)
	if err != nil {
		return counters, fmt.Errorf("shardworker: create %s: %w", out, err)
	}
	defer sink.Close()

	for {
		if err := ctx.Err(); err != nil {
			return counters, err
		}

		rec, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return counters, fmt.Errorf("shardworker: read %s: %w", in, err)
		}

		counters.Add("total", 1)

		text := rec.Content
		passed := true
		for _, step := range chain {
			ok, rewritten, err := step.Run(text)
			if err != nil {
				return counters, fmt.Errorf("shardworker: step %s: %w", step.Tag, err)
			}
			text = rewritten
			if !ok {
				counters.Add(step.Tag, 1)
				passed = false
				break
			}
		}
		if !passed {
			continue
		}

		rec.Content = text
		if err := sink.Write(rec); err != nil {
			return counters, fmt.Errorf("shardworker: write %s: %w", out, err)
		}
		counters.Add("passed", 1)
	}

	return counters, nil
}
