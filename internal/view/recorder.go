package view

import (
	"sync"

	"quickshop/internal/model"
)

// Op types emitted by the Recorder. The embed script dispatches on
// these to apply display updates.
const (
	OpOpenPopup        = "open_popup"
	OpClosePopup       = "close_popup"
	OpRenderGroup      = "render_group"
	OpSetActiveValue   = "set_active_value"
	OpMoveIndicator    = "move_indicator"
	OpSetPrice         = "set_price"
	OpSetSubmitEnabled = "set_submit_enabled"
	OpShowMessage      = "show_message"
)

// Op is one recorded view operation in wire form. Type discriminates;
// only the fields for that type are populated.
type Op struct {
	Type    string         `json:"type"`
	Content *PopupContent  `json:"content,omitempty"`
	Group   *Group         `json:"group,omitempty"`
	Option  string         `json:"option,omitempty"`
	Value   string         `json:"value,omitempty"`
	Index   int            `json:"index,omitempty"`
	Count   int            `json:"count,omitempty"`
	Text    string         `json:"text,omitempty"`
	Enabled *bool          `json:"enabled,omitempty"`
	Message *model.Message `json:"message,omitempty"`
}

// Recorder implements View by recording operations in call order.
// The transport layer drains recorded ops into each response, so the
// host replays exactly what the session emitted since the last call.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Drain returns the recorded ops in order and clears the buffer.
func (r *Recorder) Drain() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := r.ops
	r.ops = nil
	return ops
}

// Len reports the number of ops recorded since the last Drain.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// OpenPopup records an open_popup op.
func (r *Recorder) OpenPopup(content PopupContent) {
	r.record(Op{Type: OpOpenPopup, Content: &content})
}

// ClosePopup records a close_popup op.
func (r *Recorder) ClosePopup() {
	r.record(Op{Type: OpClosePopup})
}

// RenderGroup records a render_group op.
func (r *Recorder) RenderGroup(g Group) {
	r.record(Op{Type: OpRenderGroup, Group: &g})
}

// SetActiveValue records a set_active_value op.
func (r *Recorder) SetActiveValue(option, value string) {
	r.record(Op{Type: OpSetActiveValue, Option: option, Value: value})
}

// MoveIndicator records a move_indicator op.
func (r *Recorder) MoveIndicator(option string, index, count int) {
	r.record(Op{Type: OpMoveIndicator, Option: option, Index: index, Count: count})
}

// SetPrice records a set_price op.
func (r *Recorder) SetPrice(text string) {
	r.record(Op{Type: OpSetPrice, Text: text})
}

// SetSubmitEnabled records a set_submit_enabled op. Enabled is a
// pointer so a disable is still visible after JSON encoding.
func (r *Recorder) SetSubmitEnabled(enabled bool) {
	r.record(Op{Type: OpSetSubmitEnabled, Enabled: &enabled})
}

// ShowMessage records a show_message op.
func (r *Recorder) ShowMessage(msg model.Message) {
	r.record(Op{Type: OpShowMessage, Message: &msg})
}

// Verify Recorder implements View at compile time.
var _ View = (*Recorder)(nil)
