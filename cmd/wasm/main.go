//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/style"
)

// PolygonStyleRequest represents a polygon style request from JS
type PolygonStyleRequest struct {
	Name        string `json:"name"`
	Dark        bool   `json:"dark"`
	Overlay     bool   `json:"overlay"`
	Selected    bool   `json:"selected"`
	AnySelected bool   `json:"anySelected"`
	Hover       bool   `json:"hover"`
}

// LabelStyleRequest represents a label style request from JS
type LabelStyleRequest struct {
	Dark        bool `json:"dark"`
	Selected    bool `json:"selected"`
	AnySelected bool `json:"anySelected"`
	Compact     bool `json:"compact"`
}

type labelStyleResponse struct {
	style.Label
	TextShadow string `json:"textShadow"`
}

var districts = district.Oslo()

func parseArg(args []js.Value, v any) error {
	if len(args) < 1 {
		return fmt.Errorf("missing arguments")
	}
	if err := json.Unmarshal([]byte(args[0].String()), v); err != nil {
		return fmt.Errorf("failed to parse request: %v", err)
	}
	return nil
}

func reply(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return string(b)
}

// polygonStyle resolves a district polygon's Leaflet path options. Names
// that do not match a district keep the default style and never hover.
func polygonStyle(this js.Value, args []js.Value) any {
	var req PolygonStyleRequest
	if err := parseArg(args, &req); err != nil {
		return map[string]any{"error": err.Error()}
	}
	d, ok := districts.ByName(req.Name)
	in := style.PolygonInput{
		Dark:        req.Dark,
		Overlay:     req.Overlay,
		Resolved:    ok,
		Selected:    req.Selected,
		AnySelected: req.AnySelected,
		PriceChange: d.PriceChange,
	}
	if req.Hover {
		if p, ok := style.HoverStyle(in); ok {
			return reply(p)
		}
	}
	return reply(style.PolygonStyle(in))
}

func labelStyle(this js.Value, args []js.Value) any {
	var req LabelStyleRequest
	if err := parseArg(args, &req); err != nil {
		return map[string]any{"error": err.Error()}
	}
	l := style.LabelStyle(style.LabelInput(req))
	return reply(labelStyleResponse{Label: l, TextShadow: style.CSSShadow(l.Shadow)})
}

func choroplethColor(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "missing arguments"}
	}
	return style.ChoroplethColor(args[0].Float()).String()
}

func main() {
	c := make(chan struct{})

	js.Global().Set("bydelskartPolygonStyle", js.FuncOf(polygonStyle))
	js.Global().Set("bydelskartLabelStyle", js.FuncOf(labelStyle))
	js.Global().Set("bydelskartChoroplethColor", js.FuncOf(choroplethColor))

	fmt.Println("Bydelskart WASM module loaded")
	<-c
}
