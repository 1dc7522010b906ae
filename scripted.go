package pregel

import "github.com/arborworks/pregel/script"

// ScriptedMessagingFunction adapts a script.SendMessagesFunc, loaded from Go
// source text at runtime, into a MessagingFunction over the (string, float64,
// float64, float64) specialization scripted jobs are restricted to.
type ScriptedMessagingFunction struct {
	BaseMessagingFunction[string, float64, float64, float64]
	Fn script.SendMessagesFunc
}

func (s *ScriptedMessagingFunction) SendMessages(ctx *MessagingContext[string, float64, float64, float64], vertex string, value float64) error {
	return s.Fn(vertex, value, func(target string, payload float64) error {
		return ctx.SendMessageTo(target, payload)
	})
}

// ScriptedUpdateFunction adapts a script.UpdateVertexFunc the same way.
type ScriptedUpdateFunction struct {
	BaseUpdateFunction[string, float64, float64]
	Fn script.UpdateVertexFunc
}

func (s *ScriptedUpdateFunction) UpdateVertex(ctx *UpdateContext[string, float64, float64], vertex string, current float64, messages []float64) (float64, bool) {
	return s.Fn(vertex, current, messages)
}
