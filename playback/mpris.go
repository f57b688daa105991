package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"lyrics-sync-go/services/providers"
)

const (
	mprisPath          = "/org/mpris/MediaPlayer2"
	mprisPlayerIface   = "org.mpris.MediaPlayer2.Player"
	dbusPropertiesGet  = "org.freedesktop.DBus.Properties.Get"
	dbusServiceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"
)

// MPRIS reads playback state from a desktop player over the D-Bus session bus
type MPRIS struct {
	conn    *dbus.Conn
	service string
}

// NewMPRIS connects to the session bus and targets service,
// e.g. org.mpris.MediaPlayer2.spotify
func NewMPRIS(service string) (*MPRIS, error) {
	if service == "" {
		return nil, errors.New("empty mpris service name")
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &MPRIS{conn: conn, service: service}, nil
}

func (m *MPRIS) Name() string {
	return "mpris:" + m.service
}

// Close releases the bus connection
func (m *MPRIS) Close() error {
	return m.conn.Close()
}

func (m *MPRIS) property(ctx context.Context, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := m.conn.Object(m.service, mprisPath).
		CallWithContext(ctx, dbusPropertiesGet, 0, mprisPlayerIface, name).
		Store(&v)
	return v, err
}

// Poll reads status, metadata and position. A player that is not running
// or is stopped counts as nothing playing.
func (m *MPRIS) Poll(ctx context.Context) (*Update, error) {
	status, err := m.property(ctx, "PlaybackStatus")
	if isServiceUnknown(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playback status: %w", err)
	}
	playing, active := parseStatus(status)
	if !active {
		return nil, nil
	}

	meta, err := m.property(ctx, "Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	metadata, ok := meta.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", meta.Value())
	}
	track := trackFromMetadata(metadata)
	if !track.Valid() {
		return nil, nil
	}

	var position float64
	if pos, err := m.property(ctx, "Position"); err == nil {
		position = microsToSeconds(pos.Value())
	}

	return &Update{Track: track, PositionSeconds: position, Playing: playing}, nil
}

func isServiceUnknown(err error) bool {
	var value dbus.Error
	if errors.As(err, &value) {
		return value.Name == dbusServiceUnknown
	}
	var ptr *dbus.Error
	if errors.As(err, &ptr) {
		return ptr.Name == dbusServiceUnknown
	}
	return false
}

// parseStatus maps PlaybackStatus onto (playing, has a track)
func parseStatus(v dbus.Variant) (playing bool, active bool) {
	s, _ := v.Value().(string)
	switch s {
	case "Playing":
		return true, true
	case "Paused":
		return false, true
	default:
		return false, false
	}
}

func trackFromMetadata(metadata map[string]dbus.Variant) providers.TrackQuery {
	return providers.TrackQuery{
		Name:       extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		DurationMs: int(microsToSeconds(valueOf(metadata, "mpris:length")) * 1000),
		ISRC:       extractString(metadata, "xesam:isrc"),
	}
}

func valueOf(metadata map[string]dbus.Variant, key string) interface{} {
	v, ok := metadata[key]
	if !ok {
		return nil
	}
	return v.Value()
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	s, _ := valueOf(metadata, key).(string)
	return s
}

// extractArtist returns the first artist; players send either a list or a string
func extractArtist(metadata map[string]dbus.Variant, key string) string {
	switch typed := valueOf(metadata, key).(type) {
	case []string:
		if len(typed) > 0 {
			return typed[0]
		}
	case string:
		return typed
	}
	return ""
}

// microsToSeconds converts an MPRIS microsecond value; players disagree on
// the integer type
func microsToSeconds(v interface{}) float64 {
	var us float64
	switch typed := v.(type) {
	case int64:
		us = float64(typed)
	case uint64:
		us = float64(typed)
	case int32:
		us = float64(typed)
	case uint32:
		us = float64(typed)
	case float64:
		us = typed
	}
	if us < 0 {
		return 0
	}
	return us / 1_000_000
}
