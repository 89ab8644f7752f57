package view

import (
	"quickshop/internal/model"
)

// Mock implements View for testing.
// Each method can be configured via function fields; unset methods
// discard the operation.
type Mock struct {
	OpenPopupFunc        func(content PopupContent)
	ClosePopupFunc       func()
	RenderGroupFunc      func(g Group)
	SetActiveValueFunc   func(option, value string)
	MoveIndicatorFunc    func(option string, index, count int)
	SetPriceFunc         func(text string)
	SetSubmitEnabledFunc func(enabled bool)
	ShowMessageFunc      func(msg model.Message)
}

// OpenPopup calls the configured OpenPopupFunc if set.
func (m *Mock) OpenPopup(content PopupContent) {
	if m.OpenPopupFunc != nil {
		m.OpenPopupFunc(content)
	}
}

// ClosePopup calls the configured ClosePopupFunc if set.
func (m *Mock) ClosePopup() {
	if m.ClosePopupFunc != nil {
		m.ClosePopupFunc()
	}
}

// RenderGroup calls the configured RenderGroupFunc if set.
func (m *Mock) RenderGroup(g Group) {
	if m.RenderGroupFunc != nil {
		m.RenderGroupFunc(g)
	}
}

// SetActiveValue calls the configured SetActiveValueFunc if set.
func (m *Mock) SetActiveValue(option, value string) {
	if m.SetActiveValueFunc != nil {
		m.SetActiveValueFunc(option, value)
	}
}

// MoveIndicator calls the configured MoveIndicatorFunc if set.
func (m *Mock) MoveIndicator(option string, index, count int) {
	if m.MoveIndicatorFunc != nil {
		m.MoveIndicatorFunc(option, index, count)
	}
}

// SetPrice calls the configured SetPriceFunc if set.
func (m *Mock) SetPrice(text string) {
	if m.SetPriceFunc != nil {
		m.SetPriceFunc(text)
	}
}

// SetSubmitEnabled calls the configured SetSubmitEnabledFunc if set.
func (m *Mock) SetSubmitEnabled(enabled bool) {
	if m.SetSubmitEnabledFunc != nil {
		m.SetSubmitEnabledFunc(enabled)
	}
}

// ShowMessage calls the configured ShowMessageFunc if set.
func (m *Mock) ShowMessage(msg model.Message) {
	if m.ShowMessageFunc != nil {
		m.ShowMessageFunc(msg)
	}
}

// Verify Mock implements View interface at compile time.
var _ View = (*Mock)(nil)
