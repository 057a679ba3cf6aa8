package app

import (
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"storyboard/internal/types"
)

const toastDuration = 4 * time.Second

type toastLevel int

const (
	toastLevelInfo toastLevel = iota
	toastLevelWarning
	toastLevelError
)

func (m *Model) setStatusInfo(message string) {
	m.status = message
	m.showToast(toastLevelInfo, message)
}

func (m *Model) setStatusWarning(message string) {
	m.status = message
	m.showToast(toastLevelWarning, message)
}

func (m *Model) setStatusError(message string) {
	m.status = message
	m.showToast(toastLevelError, message)
}

// showNotice turns a dispatched notice into a toast. Title and message are
// joined so a multi-task completion reads as one line.
func (m *Model) showNotice(notice types.Notice) {
	text := strings.TrimSpace(notice.Title)
	if msg := strings.TrimSpace(notice.Message); msg != "" {
		if text != "" {
			text += ": "
		}
		text += msg
	}
	switch notice.Level {
	case types.NotificationLevelError:
		m.setStatusError(text)
	case types.NotificationLevelWarning:
		m.setStatusWarning(text)
	default:
		m.setStatusInfo(text)
	}
}

func (m *Model) showToast(level toastLevel, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	m.toastText = message
	m.toastLevel = level
	m.toastUntil = m.now().Add(toastDuration)
}

func (m *Model) clearToast() {
	m.toastText = ""
	m.toastLevel = toastLevelInfo
	m.toastUntil = time.Time{}
}

func (m *Model) toastActive(at time.Time) bool {
	if strings.TrimSpace(m.toastText) == "" {
		return false
	}
	if m.toastUntil.IsZero() {
		return true
	}
	return at.Before(m.toastUntil)
}

func (m *Model) toastLine(width int) string {
	if !m.toastActive(m.now()) || width <= 0 {
		return ""
	}
	text := truncateToWidth(m.toastText, max(1, width-4))
	pill := m.toastStyle().Render(" " + text + " ")
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, pill)
}

func (m *Model) toastStyle() lipgloss.Style {
	switch m.toastLevel {
	case toastLevelWarning:
		return toastWarningStyle
	case toastLevelError:
		return toastErrorStyle
	default:
		return toastInfoStyle
	}
}
