package notify

import (
	"fmt"
	"log"
	"os/exec"
)

// Notifier surfaces pipeline events to the user. Advisory messages are
// transient and non-fatal (a discarded hallucination, a skipped segment);
// Error is reserved for failures that block the session.
type Notifier interface {
	SessionChanged(state string)
	Advisory(msg string)
	Error(msg string)
}

// Desktop sends notifications via notify-send.
type Desktop struct{}

func (Desktop) SessionChanged(state string) {
	send(fmt.Sprintf("Greffier: session %s", state), false)
}

func (Desktop) Advisory(msg string) {
	send(msg, false)
}

func (Desktop) Error(msg string) {
	send(msg, true)
}

func send(msg string, critical bool) {
	args := []string{"-a", "Greffier"}
	if critical {
		args = append(args, "-u", "critical")
	}
	args = append(args, msg)
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		log.Printf("notify: failed to send notification: %v", err)
	}
}

// Log writes notifications to the daemon log instead of the desktop.
type Log struct{}

func (Log) SessionChanged(state string) { log.Printf("notify: session %s", state) }
func (Log) Advisory(msg string)         { log.Printf("notify: %s", msg) }
func (Log) Error(msg string)            { log.Printf("notify: ERROR %s", msg) }

// Nop does absolutely nothing. Useful in unit tests and headless builds.
type Nop struct{}

func (Nop) SessionChanged(string) {}
func (Nop) Advisory(string)       {}
func (Nop) Error(string)          {}

// ForType returns the notifier matching the configured type.
func ForType(t string, enabled bool) Notifier {
	if !enabled {
		return Nop{}
	}
	switch t {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}
