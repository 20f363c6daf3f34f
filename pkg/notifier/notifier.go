// Package notifier sends desktop notifications about build results
package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/result"
)

// Sender delivers one notification
type Sender func(title, message string) error

// BuildNotifier handles build notifications
type BuildNotifier struct {
	enabled bool
	sound   bool
	send    Sender
	logger  logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled bool
	Sound   bool
	// Sender overrides the desktop notification backend
	Sender Sender
}

// New creates a new build notifier
func New(config Config, log logger.Logger) *BuildNotifier {
	if log == nil {
		log = logger.Nop()
	}
	send := config.Sender
	if send == nil {
		send = func(title, message string) error {
			return beeep.Notify(title, message, "")
		}
	}
	return &BuildNotifier{
		enabled: config.Enabled,
		sound:   config.Sound,
		send:    send,
		logger:  log,
	}
}

// NotifyAppSuccess notifies that one app finished
func (n *BuildNotifier) NotifyAppSuccess(app string, duration time.Duration) {
	if !n.enabled {
		return
	}
	n.sendNotification("✅ lingo", fmt.Sprintf("%s built in %s", app, formatDuration(duration)), false)
}

// NotifyAppFailure notifies that one app failed
func (n *BuildNotifier) NotifyAppFailure(app string, err error) {
	if !n.enabled {
		return
	}
	n.sendNotification("❌ lingo", fmt.Sprintf("%s: %s", app, firstLine(err)), true)
}

// NotifyBatch summarises a whole batch. err is the merged batch result.
func (n *BuildNotifier) NotifyBatch(operation string, apps int, err error, duration time.Duration) {
	if !n.enabled {
		return
	}

	if err == nil {
		n.sendNotification(
			"✅ lingo "+operation+" succeeded",
			fmt.Sprintf("%d app(s) in %s", apps, formatDuration(duration)),
			false,
		)
		return
	}

	failed := result.FailedApps(err)
	message := fmt.Sprintf("%d of %d app(s) failed", len(failed), apps)
	if len(failed) > 0 {
		message += ": " + strings.Join(failed, ", ")
	} else {
		message = firstLine(err)
	}
	n.sendNotification("❌ lingo "+operation+" failed", message, true)
}

func (n *BuildNotifier) sendNotification(title, message string, failure bool) {
	if err := n.send(title, message); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}

	if failure && n.sound {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func firstLine(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
