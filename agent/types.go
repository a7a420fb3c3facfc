package agent

import (
	"time"

	"github.com/odvcencio/furry-actions/runtime"
)

// Snapshot captures a structured view of the current UI state.
type Snapshot struct {
	Timestamp  time.Time    `json:"timestamp"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	LayerCount int          `json:"layer_count,omitempty"`
	Renders    int64        `json:"renders,omitempty"`
	Text       string       `json:"text,omitempty"`
	Lines      []string     `json:"-"`
	Cursor     *Point       `json:"cursor,omitempty"`
	Widgets    []WidgetInfo `json:"widgets,omitempty"`
}

// Point is a screen cell.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// WidgetInfo describes a widget in the base layer's tree.
type WidgetInfo struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Bounds   runtime.Rect `json:"bounds"`
	Focused  bool         `json:"focused,omitempty"`
	Children []WidgetInfo `json:"children,omitempty"`
}
