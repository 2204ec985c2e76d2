// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package element

import (
	"github.com/BaSui01/lumenflow/ports"
	"github.com/BaSui01/lumenflow/types"
)

// Text 常量文本源：Send() 将配置的文本作为 KindText Payload 从
// text_output 发出。典型用途是系统提示词等图中的固定内容。
type Text struct {
	*Element

	content string
	role    types.Role
}

// NewText creates a constant text source. An empty role defaults to system.
func NewText(name, content string, role types.Role, opts ...Option) *Text {
	if role == "" {
		role = types.RoleSystem
	}
	t := &Text{Element: New(name, opts...), content: content, role: role}
	t.Ports().AddOutput("text_output", ports.OutputConfig{Kind: types.KindText})
	return t
}

// Content returns the configured text.
func (t *Text) Content() string { return t.content }

// SetContent replaces the configured text.
func (t *Text) SetContent(s string) { t.content = s }

// Send emits the configured text to every connected input.
func (t *Text) Send() error {
	return t.Output("text_output").Emit(types.NewText(t.content).WithRole(t.role))
}
