// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

// Package lumenflow provides a top-level convenience entry point for wiring
// dataflow graphs with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/lumenflow"
//
//	text := element.NewText("greeting", "hello", lumenflow.RoleUser)
//	err := lumenflow.Connect(text.Output("text_output"), sink.Input("pipe_input"))
//
// This is a thin re-export layer over the ports and types packages. Use it
// when you prefer the shorter import path.
package lumenflow

import (
	"github.com/BaSui01/lumenflow/ports"
	"github.com/BaSui01/lumenflow/types"
)

// Core data types carried along graph edges.
type (
	Payload = types.Payload
	Message = types.Message
	Kind    = types.Kind
	Role    = types.Role
)

// Common payload kinds.
const (
	KindAny        = types.KindAny
	KindText       = types.KindText
	KindMessage    = types.KindMessage
	KindStructured = types.KindStructured
)

// KindMessageList is the kind of an ordered message sequence.
var KindMessageList = types.KindMessageList

// Message roles.
const (
	RoleSystem    = types.RoleSystem
	RoleUser      = types.RoleUser
	RoleAssistant = types.RoleAssistant
)

// Payload constructors re-exported from types.

// NewText wraps a plain string.
var NewText = types.NewText

// FromMessage wraps a single message.
var FromMessage = types.FromMessage

// FromMessages wraps a message sequence.
var FromMessages = types.FromMessages

// NewStructured wraps raw JSON.
var NewStructured = types.NewStructured

// Connect wires an output port to an input port, enforcing kind
// compatibility and exactly-once registration.
func Connect(out *ports.OutputPort, in *ports.InputPort) error {
	return ports.Connect(out, in)
}
