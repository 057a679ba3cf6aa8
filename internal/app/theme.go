package app

import "charm.land/lipgloss/v2"

var (
	headerStyle              = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle                = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle              = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle             = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	selectedStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	dividerStyle             = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	menuDropStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("235"))
	contextMenuHeaderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("251")).Background(lipgloss.Color("235")).Bold(true)
	confirmDialogBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("208"))
	overlayBorderStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("69")).Padding(1, 3)
	overlayTitleStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	overlaySubStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	connectedStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	disconnectedStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	loadingStyle             = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Italic(true)

	taskPendingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	taskProcessingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	taskSuccessStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	taskFailedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	toastInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	toastWarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("136")).Bold(true)
	toastErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
)
