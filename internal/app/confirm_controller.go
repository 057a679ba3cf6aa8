package app

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	xansi "github.com/charmbracelet/x/ansi"
)

type confirmChoice int

const (
	confirmChoiceNone confirmChoice = iota
	confirmChoiceConfirm
	confirmChoiceCancel
)

const (
	confirmMinWidth = 28
	confirmMaxWidth = 60
)

// ConfirmController is the yes/no dialog used before destructive actions.
// The subject is whatever the caller needs back once the user answers.
type ConfirmController struct {
	active       bool
	title        string
	message      string
	confirmLabel string
	cancelLabel  string
	subject      string
	selected     int
}

func NewConfirmController() *ConfirmController {
	return &ConfirmController{}
}

func (c *ConfirmController) IsOpen() bool {
	return c != nil && c.active
}

func (c *ConfirmController) Subject() string {
	if c == nil {
		return ""
	}
	return c.subject
}

func (c *ConfirmController) Open(title, message, confirmLabel, cancelLabel, subject string) {
	if c == nil {
		return
	}
	if confirmLabel == "" {
		confirmLabel = "Confirm"
	}
	if cancelLabel == "" {
		cancelLabel = "Cancel"
	}
	*c = ConfirmController{
		active:       true,
		title:        strings.TrimSpace(title),
		message:      strings.TrimSpace(message),
		confirmLabel: confirmLabel,
		cancelLabel:  cancelLabel,
		subject:      subject,
	}
}

func (c *ConfirmController) Close() {
	if c == nil {
		return
	}
	*c = ConfirmController{}
}

func (c *ConfirmController) HandleKey(msg tea.KeyMsg) (bool, confirmChoice) {
	if c == nil || !c.active {
		return false, confirmChoiceNone
	}
	switch msg.String() {
	case "esc", "q", "n":
		return true, confirmChoiceCancel
	case "y":
		return true, confirmChoiceConfirm
	case "left", "h":
		c.selected = 0
		return true, confirmChoiceNone
	case "right", "l":
		c.selected = 1
		return true, confirmChoiceNone
	case "tab":
		c.selected = 1 - c.selected
		return true, confirmChoiceNone
	case "enter":
		if c.selected == 0 {
			return true, confirmChoiceConfirm
		}
		return true, confirmChoiceCancel
	}
	// Swallow everything else so keys do not leak to the list behind.
	return true, confirmChoiceNone
}

// View renders the dialog centred in maxWidth and returns it with the row
// it should start on.
func (c *ConfirmController) View(maxWidth, maxHeight int) (string, int) {
	if c == nil || !c.active {
		return "", 0
	}
	x, y, width := c.layout(maxWidth, maxHeight)
	innerWidth := max(1, width-2)
	contentWidth := max(1, innerWidth-2)

	title := c.title
	if title == "" {
		title = "Confirm"
	}
	title = truncateToWidth(title, contentWidth)
	lines := []string{contextMenuHeaderStyle.Render(" " + padToWidth(title, contentWidth) + " ")}

	if c.message != "" {
		wrapped := xansi.Hardwrap(c.message, contentWidth, true)
		for _, line := range strings.Split(wrapped, "\n") {
			line = truncateToWidth(line, contentWidth)
			lines = append(lines, menuDropStyle.Render(" "+padToWidth(line, contentWidth)+" "))
		}
	}

	leftWidth := contentWidth / 2
	rightWidth := contentWidth - leftWidth
	confirm := padToWidth(truncateToWidth("["+c.confirmLabel+"]", leftWidth), leftWidth)
	cancel := padToWidth(truncateToWidth("["+c.cancelLabel+"]", rightWidth), rightWidth)
	if c.selected == 0 {
		confirm = selectedStyle.Render(confirm)
		cancel = menuDropStyle.Render(cancel)
	} else {
		confirm = menuDropStyle.Render(confirm)
		cancel = selectedStyle.Render(cancel)
	}
	lines = append(lines, " "+confirm+cancel+" ")

	block := confirmDialogBorderStyle.Render(strings.Join(lines, "\n"))
	return indentBlock(block, x), y
}

func (c *ConfirmController) layout(maxWidth, maxHeight int) (int, int, int) {
	width := c.width()
	if maxWidth > 0 && width > maxWidth {
		width = maxWidth
	}
	x, y := 0, 0
	if maxWidth > 0 {
		x = max(0, (maxWidth-width)/2)
	}
	if maxHeight > 0 {
		y = max(0, (maxHeight-c.height(width))/2)
	}
	return x, y, width
}

func (c *ConfirmController) width() int {
	content := max(xansi.StringWidth(c.title), xansi.StringWidth(c.message))
	content = max(content, xansi.StringWidth(c.confirmLabel)+xansi.StringWidth(c.cancelLabel)+6)
	return min(max(confirmMinWidth, content+4), confirmMaxWidth)
}

func (c *ConfirmController) height(width int) int {
	contentWidth := max(1, width-4)
	height := 4
	if c.message != "" {
		height += strings.Count(xansi.Hardwrap(c.message, contentWidth, true), "\n") + 1
	}
	return height
}
