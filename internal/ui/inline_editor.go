package ui

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// InlineEditor is a single-line text input with Save and Cancel actions.
// enter saves when CanSave allows it; esc cancels.
type InlineEditor struct {
	input    textinput.Model
	onChange func(string)
	onSave   func() tea.Cmd
	onCancel func() tea.Cmd
	canSave  func(string) bool
	noColor  bool
}

// InlineEditorOptions wires the editor to its owner. Any callback may be nil.
type InlineEditorOptions struct {
	OnChange func(value string)
	OnSave   func() tea.Cmd
	OnCancel func() tea.Cmd
	// CanSave gates the save action. Defaults to "not blank".
	CanSave func(value string) bool
	NoColor bool
}

// NewInlineEditor returns a focused editor holding value.
func NewInlineEditor(value string, opts InlineEditorOptions) *InlineEditor {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = "value"
	ti.CharLimit = 0
	ti.SetWidth(40)
	ti.SetValue(value)
	ti.Focus()

	canSave := opts.CanSave
	if canSave == nil {
		canSave = notBlank
	}
	return &InlineEditor{
		input:    ti,
		onChange: opts.OnChange,
		onSave:   opts.OnSave,
		onCancel: opts.OnCancel,
		canSave:  canSave,
		noColor:  opts.NoColor,
	}
}

func notBlank(v string) bool {
	return strings.TrimSpace(v) != ""
}

// Value returns the current text.
func (e *InlineEditor) Value() string {
	return e.input.Value()
}

// SetValue replaces the text without firing OnChange.
func (e *InlineEditor) SetValue(v string) {
	e.input.SetValue(v)
}

// CanSave reports whether the save action is enabled.
func (e *InlineEditor) CanSave() bool {
	return e.canSave(e.input.Value())
}

// Init implements ChildModel.
func (e *InlineEditor) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements ChildModel.
func (e *InlineEditor) Update(msg tea.Msg) (ChildModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyPressMsg); ok {
		switch msg.String() {
		case "enter":
			if !e.CanSave() || e.onSave == nil {
				return e, nil
			}
			return e, e.onSave()
		case "esc":
			if e.onCancel == nil {
				return e, nil
			}
			return e, e.onCancel()
		}
	}

	before := e.input.Value()
	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	if after := e.input.Value(); after != before && e.onChange != nil {
		e.onChange(after)
	}
	return e, cmd
}

// View implements ChildModel.
func (e *InlineEditor) View() string {
	s := newStyles(CurrentTheme(), e.noColor)
	return e.input.View() + "  " + s.renderButton("Save", e.CanSave()) + " " + s.renderButton("Cancel", true)
}

// SetSize implements ModelWithSize.
func (e *InlineEditor) SetSize(width, _ int) {
	// Leave room for the prompt and both buttons.
	if w := width - 24; w > 10 {
		e.input.SetWidth(w)
	}
}

// Focus implements ModelWithFocus.
func (e *InlineEditor) Focus() tea.Cmd {
	return e.input.Focus()
}

// Blur implements ModelWithFocus.
func (e *InlineEditor) Blur() {
	e.input.Blur()
}

// Focused implements ModelWithFocus.
func (e *InlineEditor) Focused() bool {
	return e.input.Focused()
}
