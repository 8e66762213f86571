package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"igunfollow/pkg/cooldown"
	"igunfollow/pkg/unfollow"
)

var (
	accentCyan   = lipgloss.Color("#00FFFF")
	accentGreen  = lipgloss.Color("#39FF14")
	accentYellow = lipgloss.Color("#FFFF00")
	accentRed    = lipgloss.Color("#FF3131")
	dimWhite     = lipgloss.Color("#B0B0B0")

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentCyan).
			Padding(0, 2)

	errorBoxStyle = boxStyle.
			BorderForeground(accentRed)

	titleStyle = lipgloss.NewStyle().
			Foreground(accentGreen).
			Bold(true).
			MarginBottom(1)

	errorTitleStyle = titleStyle.
			Foreground(accentRed)

	labelStyle = lipgloss.NewStyle().
			Foreground(accentCyan).
			Width(16)

	valueStyle = lipgloss.NewStyle().
			Foreground(accentYellow)

	failedStyle = lipgloss.NewStyle().
			Foreground(accentRed)

	footerStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Italic(true).
			MarginTop(1)
)

func statRow(label string, value interface{}, style lipgloss.Style) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render(label),
		style.Render(fmt.Sprint(value)))
}

// RenderSummary renders a finished run as a bordered box
func RenderSummary(result *unfollow.Result, cooldownFor time.Duration) string {
	var title string
	switch {
	case result.NoActionNeeded:
		title = "✅ Everyone follows you back!"
	case result.DryRun:
		title = "🔍 Dry Run"
	default:
		title = "✅ Unfollow Complete"
	}

	rows := []string{
		titleStyle.Render(title),
		statRow("Following", result.TotalFollowing, valueStyle),
		statRow("Followers", result.TotalFollowers, valueStyle),
	}

	if !result.NoActionNeeded {
		rows = append(rows, statRow("Non-followers", result.NonReciprocalCount, valueStyle))
		if !result.DryRun {
			rows = append(rows, statRow("Unfollowed", result.Unfollowed, valueStyle))
			if result.Failed > 0 {
				rows = append(rows, statRow("Failed", result.Failed, failedStyle))
			}
		}
	}

	if len(result.FailedAccounts) > 0 {
		names := make([]string, 0, len(result.FailedAccounts))
		for _, a := range result.FailedAccounts {
			names = append(names, a.Username)
		}
		rows = append(rows, failedStyle.Render("Could not unfollow: "+strings.Join(names, ", ")))
	}

	rows = append(rows, statRow("Duration", result.Duration.Round(time.Second), valueStyle))

	if result.DryRun {
		rows = append(rows, footerStyle.Render("Dry run, cooldown not started"))
	} else if cooldownFor > 0 {
		rows = append(rows, footerStyle.Render(fmt.Sprintf("Command available again in %s", cooldownFor)))
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// RenderError renders a failed run
func RenderError(err error) string {
	return errorBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		errorTitleStyle.Render("❌ Error"),
		err.Error(),
	))
}

// RenderCooldown renders a refused run
func RenderCooldown(status cooldown.Status) string {
	who := status.LastUser
	if who == "" {
		who = "Someone"
	}

	var body string
	if status.InProgress {
		body = fmt.Sprintf("%s started a run that is still in progress.", who)
	} else {
		remaining := status.Remaining.Truncate(time.Second)
		body = fmt.Sprintf("%s used this command recently.\nAvailable again in %s", who, remaining)
	}

	return errorBoxStyle.
		BorderForeground(accentYellow).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Foreground(accentYellow).Render("⏰ Global Cooldown Active"),
			body,
		))
}
