// Package script loads messaging and vertex-update function bodies from Go
// source text at runtime, using github.com/traefik/yaegi instead of
// requiring a Go build per job. It trades full generic flexibility for the
// ability to describe a job entirely in JobSpec: scripted UDFs operate over
// the fixed (string key, float64 value/message) specialization, the same
// trade-off a scripting host always makes when it cannot see the caller's
// type parameters.
package script

import (
	"fmt"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Source names a symbol defined inside a Go source snippet: Payload is
// evaluated first, then Symbol is looked up in the resulting interpreter
// scope.
type Source struct {
	Payload string
	Symbol  string
}

// loadSymbol evaluates payload and resolves symbol in the interpreter's
// scope, failing unless it resolves to a func value.
func loadSymbol(src Source) (reflect.Value, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return reflect.Value{}, fmt.Errorf("script: loading stdlib symbols: %w", err)
	}

	if _, err := i.Eval(src.Payload); err != nil {
		return reflect.Value{}, fmt.Errorf("script: evaluating payload: %w", err)
	}

	sym, err := i.Eval(src.Symbol)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("script: evaluating symbol %q: %w", src.Symbol, err)
	}
	if sym.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("script: symbol %q is not a func", src.Symbol)
	}
	return sym, nil
}

// SendMessagesFunc is the scripted shape of MessagingFunction.SendMessages
// specialized to string keys and float64 values/messages: it receives the
// sender's id, its current value, and a send callback, and returns an error.
type SendMessagesFunc func(vertex string, value float64, send func(target string, payload float64) error) error

// UpdateVertexFunc is the scripted shape of
// VertexUpdateFunction.UpdateVertex specialized the same way.
type UpdateVertexFunc func(vertex string, current float64, messages []float64) (updated float64, ok bool)

// LoadSendMessages evaluates src and returns its SendMessagesFunc symbol.
func LoadSendMessages(src Source) (SendMessagesFunc, error) {
	sym, err := loadSymbol(src)
	if err != nil {
		return nil, err
	}
	fn, ok := sym.Interface().(func(string, float64, func(string, float64) error) error)
	if !ok {
		return nil, fmt.Errorf("script: symbol %q has the wrong signature, expected func(string, float64, func(string, float64) error) error", src.Symbol)
	}
	return fn, nil
}

// LoadUpdateVertex evaluates src and returns its UpdateVertexFunc symbol.
func LoadUpdateVertex(src Source) (UpdateVertexFunc, error) {
	sym, err := loadSymbol(src)
	if err != nil {
		return nil, err
	}
	fn, ok := sym.Interface().(func(string, float64, []float64) (float64, bool))
	if !ok {
		return nil, fmt.Errorf("script: symbol %q has the wrong signature, expected func(string, float64, []float64) (float64, bool)", src.Symbol)
	}
	return fn, nil
}
