package notify

import (
	"fmt"
	"log"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest      = "org.freedesktop.Notifications"
	notifyPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod    = "org.freedesktop.Notifications.Notify"
	notifyTimeoutMs = int32(5000)
)

// DesktopNotifier sends notifications over the session D-Bus.
// Progress updates replace the previous popup instead of stacking.
type DesktopNotifier struct {
	conn    *dbus.Conn
	appName string
	lastID  uint32
}

// NewDesktopNotifier connects to the session bus
func NewDesktopNotifier(appName string) (*DesktopNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	return &DesktopNotifier{
		conn:    conn,
		appName: appName,
	}, nil
}

// Notify shows a desktop notification
func (dn *DesktopNotifier) Notify(message string, percent int) error {
	body := ""
	if percent >= 0 {
		body = fmt.Sprintf("%d%%", percent)
	}

	obj := dn.conn.Object(notifyDest, notifyPath)
	call := obj.Call(notifyMethod, 0,
		dn.appName,
		dn.lastID,
		"",
		dn.appName,
		messageWithBody(message, body),
		[]string{},
		map[string]dbus.Variant{},
		notifyTimeoutMs,
	)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err == nil {
		dn.lastID = id
	}

	return nil
}

// Close disconnects from the session bus
func (dn *DesktopNotifier) Close() error {
	return dn.conn.Close()
}

func messageWithBody(message, body string) string {
	if body == "" {
		return message
	}
	return message + " " + body
}

// New returns a desktop notifier when the session bus is reachable and
// notifications are enabled, otherwise a log notifier.
func New(appName string, enabled bool) Notifier {
	if !enabled {
		return LogNotifier{}
	}

	dn, err := NewDesktopNotifier(appName)
	if err != nil {
		log.Printf("[Notify] Desktop notifications unavailable, falling back to log: %v", err)
		return LogNotifier{}
	}

	return dn
}
