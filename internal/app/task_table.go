package app

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"

	"storyboard/internal/app/sanitizer"
	"storyboard/internal/types"
)

const (
	taskStatusWidth = 11
	taskKindWidth   = 16
	taskIDWidth     = 14
	taskMinDesc     = 8
)

// renderTaskRow lays out one drawer row. Descriptions are mostly CJK, so
// padding is computed in cells with runewidth rather than bytes.
func renderTaskRow(task *types.Task, width int) string {
	desc := sanitizer.Line(task.Desc)
	if task.Status == types.TaskStatusFailed && task.Error != "" {
		desc = sanitizer.Line(task.Error)
	}
	if desc == "" {
		desc = "-"
	}
	status := string(task.Status)
	if task.Status == types.TaskStatusProcessing && task.Progress > 0 {
		status = fmt.Sprintf("%s %d%%", status, task.Progress)
	}
	kind := sanitizer.Line(task.Kind)
	if kind == "" {
		kind = "-"
	}

	descWidth := max(taskMinDesc, width-taskStatusWidth-taskKindWidth-taskIDWidth-3)
	cells := []string{
		taskStatusStyle(task.Status).Render(fitCell(status, taskStatusWidth)),
		fitCell(kind, taskKindWidth),
		fitCell(task.ID, taskIDWidth),
		fitCell(desc, descWidth),
	}
	return strings.Join(cells, " ")
}

func renderTaskHeader(width int) string {
	descWidth := max(taskMinDesc, width-taskStatusWidth-taskKindWidth-taskIDWidth-3)
	return strings.Join([]string{
		fitCell("STATUS", taskStatusWidth),
		fitCell("KIND", taskKindWidth),
		fitCell("ID", taskIDWidth),
		fitCell("DESC", descWidth),
	}, " ")
}

func fitCell(text string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(text, width, "…"), width)
}

func taskStatusStyle(status types.TaskStatus) lipgloss.Style {
	switch status {
	case types.TaskStatusProcessing:
		return taskProcessingStyle
	case types.TaskStatusSuccess:
		return taskSuccessStyle
	case types.TaskStatusFailed:
		return taskFailedStyle
	default:
		return taskPendingStyle
	}
}
