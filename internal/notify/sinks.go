package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"storyboard/internal/logging"
	"storyboard/internal/types"
)

// DefaultSinks returns the sinks available to every entry point. The UI
// adds its own toast sink on top.
func DefaultSinks(logger logging.Logger, bell io.Writer) []Sink {
	if bell == nil {
		bell = os.Stdout
	}
	return []Sink{
		NewLogSink(logger),
		notifySendSink{},
		dunstifySink{},
		bellSink{out: bell},
	}
}

type logSink struct {
	logger logging.Logger
}

func NewLogSink(logger logging.Logger) Sink {
	if logger == nil {
		logger = logging.Nop()
	}
	return logSink{logger: logger}
}

func (logSink) Method() types.NotificationMethod {
	return types.NotificationMethodLog
}

func (s logSink) Notify(_ context.Context, notice types.Notice) error {
	fields := []logging.Field{
		logging.F("trigger", notice.Trigger),
		logging.F("title", notice.Title),
	}
	if len(notice.TaskIDs) > 0 {
		fields = append(fields, logging.F("task_ids", strings.Join(notice.TaskIDs, ",")))
	}
	if notice.RequestID != "" {
		fields = append(fields, logging.F("request_id", notice.RequestID))
	}
	switch notice.Level {
	case types.NotificationLevelError:
		s.logger.Error(notice.Message, fields...)
	case types.NotificationLevelWarning:
		s.logger.Warn(notice.Message, fields...)
	default:
		s.logger.Info(notice.Message, fields...)
	}
	return nil
}

// ChannelSink hands notices to a consumer such as the terminal UI. Sends
// never block; a full buffer drops the notice.
type ChannelSink struct {
	ch chan types.Notice
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelSink{ch: make(chan types.Notice, buffer)}
}

func (*ChannelSink) Method() types.NotificationMethod {
	return types.NotificationMethodToast
}

func (s *ChannelSink) Notify(_ context.Context, notice types.Notice) error {
	select {
	case s.ch <- notice:
		return nil
	default:
		return errors.New("toast buffer full")
	}
}

func (s *ChannelSink) C() <-chan types.Notice {
	return s.ch
}

type notifySendSink struct{}

func (notifySendSink) Method() types.NotificationMethod {
	return types.NotificationMethodNotifySend
}

func (notifySendSink) Notify(ctx context.Context, notice types.Notice) error {
	if _, err := exec.LookPath("notify-send"); err != nil {
		return err
	}
	title, body := noticeTitleBody(notice)
	args := []string{title, body}
	if notice.Level == types.NotificationLevelError {
		args = append([]string{"--urgency=critical"}, args...)
	}
	return exec.CommandContext(ctx, "notify-send", args...).Run()
}

type dunstifySink struct{}

func (dunstifySink) Method() types.NotificationMethod {
	return types.NotificationMethodDunstify
}

func (dunstifySink) Notify(ctx context.Context, notice types.Notice) error {
	if _, err := exec.LookPath("dunstify"); err != nil {
		return err
	}
	title, body := noticeTitleBody(notice)
	return exec.CommandContext(ctx, "dunstify", title, body).Run()
}

type bellSink struct {
	out io.Writer
}

func (bellSink) Method() types.NotificationMethod {
	return types.NotificationMethodBell
}

func (s bellSink) Notify(context.Context, types.Notice) error {
	_, err := fmt.Fprint(s.out, "\a")
	return err
}

func noticeTitleBody(notice types.Notice) (string, string) {
	title := strings.TrimSpace(notice.Title)
	if title == "" {
		title = "Storyboard"
	}
	body := strings.TrimSpace(notice.Message)
	if body == "" {
		body = string(notice.Trigger)
	}
	return title, body
}
