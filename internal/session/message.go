package session

import (
	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/mapview"
)

// Client message types.
const (
	TypePointer = "pointer"
	TypeClick   = "click"
	TypeCommand = "command"
	TypeTheme   = "theme"
	TypeResize  = "resize"
	TypeSelect  = "select"
)

// Server message types.
const (
	TypeHello    = "hello"
	TypeScene    = "scene"
	TypeDistrict = "district"
	TypeError    = "error"
)

// Commands accepted in a command message.
const (
	CommandZoomIn       = "zoomIn"
	CommandZoomOut      = "zoomOut"
	CommandResetView    = "resetView"
	CommandSetTileLayer = "setTileLayer"
	CommandPan          = "pan"
)

// ClientMessage is anything the browser sends. Which fields matter depends
// on Type.
type ClientMessage struct {
	Type string `json:"type"`
	// pointer: move, enter, leave, out. click: point (default), district, label.
	Event string  `json:"event,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Name  string  `json:"name,omitempty"`

	Command string  `json:"command,omitempty"`
	Layer   string  `json:"layer,omitempty"`
	DX      float64 `json:"dx,omitempty"`
	DY      float64 `json:"dy,omitempty"`

	Dark       bool   `json:"dark,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	DistrictID string `json:"districtId,omitempty"`
}

// ServerMessage is anything pushed to the browser.
type ServerMessage struct {
	Type      string              `json:"type"`
	Session   string              `json:"session,omitempty"`
	Scene     *mapview.Scene      `json:"scene,omitempty"`
	District  *district.District  `json:"district,omitempty"` // nil when the selection was cleared
	Districts []district.District `json:"districts,omitempty"`
	Error     string              `json:"error,omitempty"`
}
