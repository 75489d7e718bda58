// Package notifier sends desktop notifications when a build ends
package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/poltergeist/phasebuild/pkg/logger"
)

// BuildNotifier handles build notifications
type BuildNotifier struct {
	enabled      bool
	successSound bool
	failureSound bool
	logger       logger.Logger
	notify       func(title, message string) error
	beep         func() error
}

// Config represents notification configuration
type Config struct {
	Enabled      bool
	SuccessSound bool
	FailureSound bool
}

// New creates a build notifier delivering through beeep
func New(config Config, log logger.Logger) *BuildNotifier {
	if log == nil {
		log = logger.Discard()
	}
	return &BuildNotifier{
		enabled:      config.Enabled,
		successSound: config.SuccessSound,
		failureSound: config.FailureSound,
		logger:       log.WithTarget("notifier"),
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		beep: func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		},
	}
}

// WithSender replaces the delivery functions, mostly for tests
func (n *BuildNotifier) WithSender(notify func(title, message string) error, beep func() error) *BuildNotifier {
	n.notify = notify
	n.beep = beep
	return n
}

// NotifyBuildSuccess notifies that phase finished without errors
func (n *BuildNotifier) NotifyBuildSuccess(phase string, duration time.Duration) {
	if !n.enabled {
		return
	}
	n.send("Build Succeeded", fmt.Sprintf("Phase %q finished in %s", phase, formatDuration(duration)), n.successSound)
}

// NotifyBuildFailure notifies that phase failed. Only the first line of err is shown.
func (n *BuildNotifier) NotifyBuildFailure(phase string, err error) {
	if !n.enabled {
		return
	}
	summary := err.Error()
	if i := strings.IndexByte(summary, '\n'); i >= 0 {
		summary = summary[:i]
	}
	n.send("Build Failed", fmt.Sprintf("Phase %q: %s", phase, summary), n.failureSound)
}

func (n *BuildNotifier) send(title, message string, sound bool) {
	if err := n.notify(title, message); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
		n.logger.Info(fmt.Sprintf("%s: %s", title, message))
	}
	if sound {
		if err := n.beep(); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
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
