package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisBusPrefix   = "org.mpris.MediaPlayer2."
	mprisPath        = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	propertiesGet    = "org.freedesktop.DBus.Properties.Get"
)

// D-Bus error names that mean nobody is there to answer.
var unavailableErrors = map[string]bool{
	"org.freedesktop.DBus.Error.ServiceUnknown": true,
	"org.freedesktop.DBus.Error.NameHasNoOwner": true,
	"org.freedesktop.DBus.Error.NoReply":        true,
	"org.freedesktop.DBus.Error.Timeout":        true,
}

// MPRIS talks to a player over the session bus.
type MPRIS struct {
	conn    *dbus.Conn
	busName string
	timeout time.Duration
}

func NewMPRIS(busName string, timeout time.Duration) (*MPRIS, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &MPRIS{conn: conn, busName: busName, timeout: timeout}, nil
}

func (m *MPRIS) Close() error {
	return m.conn.Close()
}

func (m *MPRIS) Open(ctx context.Context, uri string) error {
	return m.call(ctx, "OpenUri", uri)
}

func (m *MPRIS) Play(ctx context.Context) error      { return m.call(ctx, "Play") }
func (m *MPRIS) Pause(ctx context.Context) error     { return m.call(ctx, "Pause") }
func (m *MPRIS) PlayPause(ctx context.Context) error { return m.call(ctx, "PlayPause") }
func (m *MPRIS) Next(ctx context.Context) error      { return m.call(ctx, "Next") }
func (m *MPRIS) Previous(ctx context.Context) error  { return m.call(ctx, "Previous") }

func (m *MPRIS) Seek(ctx context.Context, trackID string, offsetMicros int64) error {
	return m.call(ctx, "SetPosition", dbus.ObjectPath(trackID), offsetMicros)
}

func (m *MPRIS) Metadata(ctx context.Context) (Metadata, error) {
	v, err := m.property(ctx, "Metadata")
	if err != nil {
		return Metadata{}, err
	}
	raw, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return Metadata{}, fmt.Errorf("unexpected metadata type %T", v.Value())
	}
	return parseMetadata(raw), nil
}

func (m *MPRIS) PlaybackStatus(ctx context.Context) (Status, error) {
	v, err := m.property(ctx, "PlaybackStatus")
	if err != nil {
		return StatusUnknown, err
	}
	s, _ := v.Value().(string)
	return ParseStatus(s), nil
}

func (m *MPRIS) Position(ctx context.Context) (float64, error) {
	v, err := m.property(ctx, "Position")
	if err != nil {
		return 0, err
	}
	micros, ok := toInt64(v.Value())
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", v.Value())
	}
	if micros < 0 {
		return 0, nil
	}
	return Seconds(micros), nil
}

func (m *MPRIS) call(ctx context.Context, method string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	obj := m.conn.Object(m.busName, mprisPath)
	err := obj.CallWithContext(ctx, mprisPlayerIface+"."+method, 0, args...).Err
	if err != nil {
		logger.Debug().Err(err).Str("method", method).Msg("MPRIS call failed")
		return classify(err)
	}
	return nil
}

func (m *MPRIS) property(ctx context.Context, name string) (dbus.Variant, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var v dbus.Variant
	obj := m.conn.Object(m.busName, mprisPath)
	if err := obj.CallWithContext(ctx, propertiesGet, 0, mprisPlayerIface, name).Store(&v); err != nil {
		logger.Debug().Err(err).Str("property", name).Msg("MPRIS property read failed")
		return dbus.Variant{}, classify(err)
	}
	return v, nil
}

// classify wraps err with ErrUnavailable when it means the player is absent
// or unresponsive.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var e dbus.Error
	if errors.As(err, &e) && unavailableErrors[e.Name] {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var pe *dbus.Error
	if errors.As(err, &pe) && pe != nil && unavailableErrors[pe.Name] {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func parseMetadata(raw map[string]dbus.Variant) Metadata {
	md := Metadata{
		Title:  variantString(raw, "xesam:title"),
		Artist: variantFirstString(raw, "xesam:artist"),
		Album:  variantString(raw, "xesam:album"),
	}
	if v, ok := raw["mpris:trackid"]; ok {
		switch id := v.Value().(type) {
		case dbus.ObjectPath:
			md.TrackID = string(id)
		case string:
			md.TrackID = id
		}
	}
	if v, ok := raw["mpris:length"]; ok {
		if micros, ok := toInt64(v.Value()); ok && micros > 0 {
			md.Length = Seconds(micros)
		}
	}
	return md
}

func variantString(raw map[string]dbus.Variant, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}

func variantFirstString(raw map[string]dbus.Variant, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	switch typed := v.Value().(type) {
	case []string:
		if len(typed) > 0 {
			return typed[0]
		}
	case string:
		return typed
	}
	return ""
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}
