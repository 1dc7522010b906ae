// Package kafka ingests a job's edge list from a Kafka topic: one JSON
// {source,target,value} record per message, read synchronously by ReadAll
// into a slice that ToEdges converts into a pregel.Builder's edge slice.
// Trimmed to a single reader with no batching window, since an
// edge list is read once at job setup rather than streamed continuously
// like a dataflow source.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kaf "github.com/segmentio/kafka-go"
	"github.com/spf13/viper"

	"github.com/arborworks/pregel"
)

// EdgeRecord is the wire shape of one edge-list entry on the topic.
type EdgeRecord struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

// Source reads a bounded edge list from a Kafka topic, configured from
// viper settings: brokers, topic, partition, and max attempts.
type Source struct {
	reader *kaf.Reader
}

// NewSource builds a Source from viper configuration keys "brokers",
// "topic", "partition", and "retries".
func NewSource(v *viper.Viper) *Source {
	return &Source{reader: kaf.NewReader(kaf.ReaderConfig{
		Brokers:     v.GetStringSlice("brokers"),
		Topic:       v.GetString("topic"),
		Partition:   v.GetInt("partition"),
		MaxAttempts: v.GetInt("retries"),
	})}
}

// ReadAll drains the topic from its current offset until it returns
// io.EOF-equivalent context cancellation, or count records have been read,
// whichever comes first, returning the accumulated edge list.
func (s *Source) ReadAll(ctx context.Context, count int) ([]EdgeRecord, error) {
	out := make([]EdgeRecord, 0, count)
	for i := 0; i < count; i++ {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, nil
			}
			return nil, fmt.Errorf("kafka: reading edge record: %w", err)
		}

		var rec EdgeRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			return nil, fmt.Errorf("kafka: decoding edge record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close releases the underlying Kafka reader.
func (s *Source) Close() error {
	return s.reader.Close()
}

// ToEdges converts ingested edge records into the engine's Edge type over
// the scripted (string, float64) specialization.
func ToEdges(records []EdgeRecord) []pregel.Edge[string, float64] {
	edges := make([]pregel.Edge[string, float64], len(records))
	for i, r := range records {
		edges[i] = pregel.Edge[string, float64]{Source: r.Source, Target: r.Target, Value: r.Value}
	}
	return edges
}
