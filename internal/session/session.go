// Package session drives one map renderer per websocket connection.
package session

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/mapview"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
	"github.com/google/uuid"
)

// Config is shared by every session of a server.
type Config struct {
	Districts *district.Collection
	Catalog   *tile.Catalog
	Loader    mapview.Loader
	Logger    *slog.Logger
}

// Session is the host of one map. Its methods must only be called from the
// session's event loop.
type Session struct {
	ID        string
	districts *district.Collection
	renderer  *mapview.Renderer
	logger    *slog.Logger

	// pending collects messages produced by host callbacks while a client
	// message is handled.
	pending []ServerMessage
	// changed is signalled by the renderer outside the event loop.
	changed chan struct{}
}

// New creates a session for a viewport. The geography is not loaded until
// the event loop starts.
func New(cfg Config, dark bool, width, height int) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		ID:        uuid.NewString(),
		districts: cfg.Districts,
		changed:   make(chan struct{}, 1),
	}
	s.logger = logger.With("session", s.ID)
	s.renderer = mapview.New(mapview.Options{
		Districts: cfg.Districts,
		Catalog:   cfg.Catalog,
		Host:      s,
		Dark:      dark,
		Width:     width,
		Height:    height,
		OnChange:  s.signal,
		Logger:    s.logger,
	})
	return s
}

func (s *Session) signal() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Renderer exposes the session's map.
func (s *Session) Renderer() *mapview.Renderer {
	return s.renderer
}

// DistrictSelected selects the clicked district.
func (s *Session) DistrictSelected(d district.District) {
	s.setSelected(&d)
}

// BackgroundClicked clears the selection.
func (s *Session) BackgroundClicked() {
	if _, ok := s.renderer.Selected(); ok {
		s.setSelected(nil)
	}
}

func (s *Session) setSelected(d *district.District) {
	s.renderer.SetSelected(d)
	s.pending = append(s.pending, ServerMessage{Type: TypeDistrict, District: d})
}

// Hello is the first message of a session.
func (s *Session) Hello() ServerMessage {
	return ServerMessage{Type: TypeHello, Session: s.ID, Districts: s.districts.All()}
}

// SceneMessage snapshots the map.
func (s *Session) SceneMessage() ServerMessage {
	sc := s.renderer.Scene()
	return ServerMessage{Type: TypeScene, Scene: &sc}
}

// Handle applies one client message and returns what should be sent back:
// any district changes followed by the new scene. A resize returns no scene;
// the renderer signals once a burst of resizes has settled.
func (s *Session) Handle(m ClientMessage) []ServerMessage {
	s.pending = s.pending[:0]
	if err := s.apply(m); err != nil {
		s.logger.Debug("rejected client message", "type", m.Type, "error", err)
		return []ServerMessage{{Type: TypeError, Error: err.Error()}}
	}
	out := append([]ServerMessage(nil), s.pending...)
	if m.Type == TypeResize {
		return out
	}
	return append(out, s.SceneMessage())
}

func (s *Session) apply(m ClientMessage) error {
	r := s.renderer
	switch m.Type {
	case TypePointer:
		switch m.Event {
		case "", "move":
			r.PointerMove(m.X, m.Y)
		case "enter":
			r.PointerEnter(m.Name)
		case "leave":
			r.PointerLeave(m.Name)
		case "out":
			r.PointerOut()
		default:
			return fmt.Errorf("unknown pointer event %q", m.Event)
		}

	case TypeClick:
		switch m.Event {
		case "", "point":
			r.Click(m.X, m.Y)
		case "district":
			if !r.ClickDistrict(m.Name) {
				s.BackgroundClicked()
			}
		case "label":
			r.ClickLabel(m.Name)
		default:
			return fmt.Errorf("unknown click target %q", m.Event)
		}

	case TypeCommand:
		return s.command(m)

	case TypeTheme:
		r.SetTheme(m.Dark)

	case TypeResize:
		if m.Width <= 0 {
			return fmt.Errorf("invalid width %d", m.Width)
		}
		r.Resize(m.Width, m.Height)

	case TypeSelect:
		if m.DistrictID == "" {
			s.setSelected(nil)
			return nil
		}
		d, ok := s.districts.ByID(m.DistrictID)
		if !ok {
			return fmt.Errorf("unknown district %q", m.DistrictID)
		}
		s.setSelected(&d)

	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

func (s *Session) command(m ClientMessage) error {
	r := s.renderer
	switch m.Command {
	case CommandZoomIn:
		r.ZoomIn()
	case CommandZoomOut:
		r.ZoomOut()
	case CommandResetView:
		r.ResetView()
		if _, ok := r.Selected(); ok {
			s.setSelected(nil)
		}
	case CommandSetTileLayer:
		if !r.SetTileLayer(tile.LayerKey(m.Layer)) {
			return fmt.Errorf("unknown tile layer %q", m.Layer)
		}
	case CommandPan:
		r.Pan(m.DX, m.DY)
	default:
		return fmt.Errorf("unknown command %q", m.Command)
	}
	return nil
}

// Close disposes the map.
func (s *Session) Close() {
	s.renderer.Dispose()
}
