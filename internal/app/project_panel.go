package app

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"

	"storyboard/internal/app/sanitizer"
	"storyboard/internal/types"
)

// ProjectPanel shows the open project's working set in a scrollable pane.
type ProjectPanel struct {
	viewport viewport.Model
	width    int
	height   int
}

func NewProjectPanel(width, height int) *ProjectPanel {
	vp := viewport.New(viewport.WithWidth(max(1, width)), viewport.WithHeight(max(1, height)))
	return &ProjectPanel{viewport: vp, width: width, height: height}
}

func (p *ProjectPanel) Resize(width, height int) {
	if p == nil {
		return
	}
	p.width = max(1, width)
	p.height = max(1, height)
	p.viewport.SetWidth(p.width)
	p.viewport.SetHeight(p.height)
}

func (p *ProjectPanel) SetWorkingSet(ws types.WorkingSet) {
	if p == nil {
		return
	}
	p.viewport.SetContent(renderWorkingSet(ws, p.width))
}

func (p *ProjectPanel) ScrollUp(lines int) {
	if p != nil {
		p.viewport.ScrollUp(lines)
	}
}

func (p *ProjectPanel) ScrollDown(lines int) {
	if p != nil {
		p.viewport.ScrollDown(lines)
	}
}

func (p *ProjectPanel) View() string {
	if p == nil {
		return ""
	}
	return p.viewport.View()
}

func renderWorkingSet(ws types.WorkingSet, width int) string {
	if ws.ProjectID == "" {
		return statusStyle.Render("No project open. Start with --project <id>.")
	}
	lines := make([]string, 0, 16)
	name := ws.ProjectID
	if ws.Project != nil && strings.TrimSpace(ws.Project.Name) != "" {
		name = sanitizer.Line(ws.Project.Name) + " (" + ws.ProjectID + ")"
	}
	title := sectionStyle.Render("Project " + truncateToWidth(name, max(1, width-8)))
	if ws.Loading.Project {
		title += " " + loadingStyle.Render("loading…")
	}
	lines = append(lines, title)

	lines = append(lines, collectionLine("Characters", len(ws.Characters), ws.Loading.Characters))
	for _, c := range ws.Characters {
		lines = append(lines, "  · "+truncateToWidth(sanitizer.Line(c.Name), max(1, width-4)))
	}
	lines = append(lines, collectionLine("Shots", len(ws.Shots), ws.Loading.Shots))
	for _, s := range ws.Shots {
		label := strings.TrimSpace(string(s.ShotNumber))
		if label == "" {
			label = s.ID
		}
		if desc := sanitizer.Line(s.Description); desc != "" {
			label += " " + desc
		}
		lines = append(lines, "  · "+truncateToWidth(label, max(1, width-4)))
	}
	lines = append(lines, collectionLine("Fusions", len(ws.Fusions), ws.Loading.Fusions))

	opts := ws.GenOptions
	lines = append(lines, "", sectionStyle.Render("Generation"))
	lines = append(lines,
		optionLine("image", opts.ImageProviderID, opts.ImageModelName),
		optionLine("text", opts.TextProviderID, opts.TextModelName),
		optionLine("fusion", opts.FusionProviderID, opts.FusionModelName),
		optionLine("video", opts.VideoProviderID, opts.VideoModelName),
	)
	return strings.Join(lines, "\n")
}

func collectionLine(label string, count int, loading bool) string {
	line := fmt.Sprintf("%s %d", label, count)
	if loading {
		line += " " + loadingStyle.Render("loading…")
	}
	return line
}

func optionLine(kind, provider, model string) string {
	if provider == "" && model == "" {
		return statusStyle.Render(fmt.Sprintf("  %-7s default", kind))
	}
	return fmt.Sprintf("  %-7s %s / %s", kind, orDash(provider), orDash(model))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
