// Package config loads a JobSpec — the declarative description of one
// pregel job — from YAML or JSON and assembles a runnable
// pregel.Builder from it: the text is decoded into a generic map with
// gopkg.in/yaml.v3, the map into the JobSpec struct with
// github.com/mitchellh/mapstructure, and JobSpec.Builder converts that
// into engine types.
package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/arborworks/pregel"
	"github.com/arborworks/pregel/ingest/kafka"
	"github.com/arborworks/pregel/script"
)

// EdgeSpec is one directed edge in a JobSpec's edge list.
type EdgeSpec struct {
	Source string  `yaml:"source" mapstructure:"source"`
	Target string  `yaml:"target" mapstructure:"target"`
	Value  float64 `yaml:"value" mapstructure:"value"`
}

// ScriptSpec names a scripted UDF body, loaded by the script package.
type ScriptSpec struct {
	Symbol string `yaml:"symbol" mapstructure:"symbol"`
	Source string `yaml:"source" mapstructure:"source"`
}

// KafkaEdgeSourceSpec names a Kafka topic to read additional edges from at
// build time, as an alternative (or supplement) to the inline Edges list.
type KafkaEdgeSourceSpec struct {
	Brokers   []string `yaml:"brokers" mapstructure:"brokers"`
	Topic     string   `yaml:"topic" mapstructure:"topic"`
	Partition int      `yaml:"partition" mapstructure:"partition"`
	Retries   int      `yaml:"retries" mapstructure:"retries"`
	Count     int      `yaml:"count" mapstructure:"count"`
}

// JobSpec is the declarative description of one job over the scripted
// (string key, float64 value/message/edge) specialization: parallelism,
// supersteps, solution-set memory mode, the edge list, the scripted
// messaging/update function bodies, and the initial vertex values.
type JobSpec struct {
	Name            string               `yaml:"name" mapstructure:"name"`
	Parallelism     int                  `yaml:"parallelism" mapstructure:"parallelism"`
	MaxSupersteps   int                  `yaml:"max_supersteps" mapstructure:"max_supersteps"`
	UnmanagedMemory bool                 `yaml:"unmanaged_memory" mapstructure:"unmanaged_memory"`
	Edges           []EdgeSpec           `yaml:"edges" mapstructure:"edges"`
	EdgesFromKafka  *KafkaEdgeSourceSpec `yaml:"edges_from_kafka" mapstructure:"edges_from_kafka"`
	Input           map[string]float64   `yaml:"input" mapstructure:"input"`
	MessagingFunc   ScriptSpec           `yaml:"messaging_function" mapstructure:"messaging_function"`
	UpdateFunc      ScriptSpec           `yaml:"update_function" mapstructure:"update_function"`
}

// Parse decodes YAML (or JSON, a valid YAML subset) job spec bytes into a
// JobSpec. It round-trips through a generic map and mapstructure.Decode
// rather than yaml.Unmarshal(&spec) directly, the same two-step map→
// mapstructure shape loader.serialization.go uses, so that the same decode
// path also accepts a map[string]any sourced from somewhere other than
// YAML text (e.g. a viper config tree).
func Parse(raw []byte) (*JobSpec, error) {
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("config: parsing job spec: %w", err)
	}
	return Decode(m)
}

// Decode converts a generic map (as produced by yaml.v3, encoding/json, or
// viper) into a JobSpec via mapstructure.
func Decode(m map[string]any) (*JobSpec, error) {
	spec := &JobSpec{Parallelism: -1, MaxSupersteps: 1}
	if err := mapstructure.Decode(m, spec); err != nil {
		return nil, fmt.Errorf("config: decoding job spec: %w", err)
	}
	return spec, nil
}

// Builder assembles a pregel.Builder from the JobSpec, loading the scripted
// messaging and update function bodies via the script package and, if
// EdgesFromKafka is set, reading additional edges from a Kafka topic via
// ingest/kafka before the job's edge index is built.
func (spec *JobSpec) Builder(ctx context.Context) (*pregel.Builder[string, float64, float64, float64], error) {
	sendFn, err := script.LoadSendMessages(script.Source{Payload: spec.MessagingFunc.Source, Symbol: spec.MessagingFunc.Symbol})
	if err != nil {
		return nil, fmt.Errorf("config: loading messaging function: %w", err)
	}
	updateFn, err := script.LoadUpdateVertex(script.Source{Payload: spec.UpdateFunc.Source, Symbol: spec.UpdateFunc.Symbol})
	if err != nil {
		return nil, fmt.Errorf("config: loading update function: %w", err)
	}

	edges := make([]pregel.Edge[string, float64], len(spec.Edges))
	for i, e := range spec.Edges {
		edges[i] = pregel.Edge[string, float64]{Source: e.Source, Target: e.Target, Value: e.Value}
	}

	if spec.EdgesFromKafka != nil {
		kafkaEdges, err := readKafkaEdges(ctx, spec.EdgesFromKafka)
		if err != nil {
			return nil, fmt.Errorf("config: reading edges from kafka: %w", err)
		}
		edges = append(edges, kafkaEdges...)
	}

	messaging := &pregel.ScriptedMessagingFunction{Fn: sendFn}
	update := &pregel.ScriptedUpdateFunction{Fn: updateFn}

	b := pregel.NewBuilder[string, float64, float64, float64]().
		SetName(spec.Name).
		SetParallelism(spec.Parallelism).
		SetSolutionSetUnmanagedMemory(spec.UnmanagedMemory).
		WithValuedEdges(edges, update, messaging, spec.MaxSupersteps).
		SetInput(spec.Input)

	return b, nil
}

// readKafkaEdges opens a kafka.Source from spec's viper-shaped settings,
// reads up to spec.Count edge records, and converts them to the engine's
// Edge type, closing the reader before returning.
func readKafkaEdges(ctx context.Context, spec *KafkaEdgeSourceSpec) ([]pregel.Edge[string, float64], error) {
	v := viper.New()
	v.Set("brokers", spec.Brokers)
	v.Set("topic", spec.Topic)
	v.Set("partition", spec.Partition)
	v.Set("retries", spec.Retries)

	source := kafka.NewSource(v)
	defer source.Close()

	records, err := source.ReadAll(ctx, spec.Count)
	if err != nil {
		return nil, err
	}
	return kafka.ToEdges(records), nil
}
