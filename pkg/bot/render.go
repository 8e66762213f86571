package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"igunfollow/internal/runner"
	"igunfollow/pkg/config"
	"igunfollow/pkg/cooldown"
	"igunfollow/pkg/unfollow"
)

// Embed colours, matching Discord's built-in palette
const (
	ColorRed    = 0xE74C3C
	ColorOrange = 0xE67E22
	ColorBlue   = 0x3498DB
	ColorGreen  = 0x2ECC71
)

// maxDescription is Discord's limit for an embed description
const maxDescription = 4096

// FormatDuration renders whole seconds as "Xh Ym Zs"
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dh %dm %ds", seconds/3600, (seconds%3600)/60, seconds%60)
}

// cooldownText renders the cooldown length for the result footer
func cooldownText(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return FormatDuration(int(d / time.Second))
}

func mention(userID string) string {
	if userID == "" {
		return "Someone"
	}
	return "<@" + userID + ">"
}

// ConfigErrorEmbed tells the user the bot has no Instagram credentials
func ConfigErrorEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "❌ Configuration Error",
		Description: "Instagram credentials not found in `.env` file!\n\nMake sure you have:\n```\n" +
			config.EnvInstagramUser + "=your_username\n" +
			config.EnvInstagramPassword + "=your_password\n```",
		Color: ColorRed,
	}
}

// CooldownEmbed tells the user when the command can be used again
func CooldownEmbed(status cooldown.Status) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "⏰ Global Cooldown Active",
		Description: fmt.Sprintf("%s used this command recently.\n\nAvailable again in **%s**",
			mention(status.LastUser), FormatDuration(status.SecondsRemaining())),
		Color: ColorOrange,
	}
}

// BusyEmbed tells the user another run has not finished yet
func BusyEmbed(status cooldown.Status) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⏳ Already Running",
		Description: fmt.Sprintf("%s started this command and it is still running.\n\nTry again once it has finished.", mention(status.LastUser)),
		Color:       ColorOrange,
	}
}

// ProcessingEmbed is sent while the workflow runs
func ProcessingEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🔄 Processing",
		Description: "Logging into Instagram and running automation...\nThis may take a few minutes.",
		Color:       ColorBlue,
	}
}

// ErrorEmbed reports a failed run with the error message as is
func ErrorEmbed(err error) *discordgo.MessageEmbed {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &discordgo.MessageEmbed{
		Description: truncate("❌ **Error**\n\n" + msg),
		Color:       ColorRed,
	}
}

// ResultEmbed summarises a finished run
func ResultEmbed(result *unfollow.Result, cooldownFor time.Duration, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Description: truncate(ResultText(result)),
		Color:       ColorGreen,
		Timestamp:   now.Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Command available again in " + cooldownText(cooldownFor),
		},
	}
	if result.DryRun {
		embed.Footer.Text = "Dry run, cooldown not started"
	}
	return embed
}

// ResultText is the markdown body of the result embed
func ResultText(result *unfollow.Result) string {
	var b strings.Builder

	if result.NoActionNeeded {
		b.WriteString("✅ Everyone follows you back!\n\n**Stats:**\n")
		fmt.Fprintf(&b, "• Following: %d\n", result.TotalFollowing)
		fmt.Fprintf(&b, "• Followers: %d", result.TotalFollowers)
		return b.String()
	}

	if result.DryRun {
		b.WriteString("🔍 **Dry Run**\n\n")
	} else {
		b.WriteString("✅ **Unfollow Complete**\n\n")
	}

	b.WriteString("**Stats:**\n")
	fmt.Fprintf(&b, "• Following: %d\n", result.TotalFollowing)
	fmt.Fprintf(&b, "• Followers: %d\n", result.TotalFollowers)
	fmt.Fprintf(&b, "• Non-followers: %d\n\n", result.NonReciprocalCount)

	if result.DryRun {
		b.WriteString("**Would unfollow:**\n")
		for _, a := range result.Accounts {
			fmt.Fprintf(&b, "• %s\n", a.Username)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	b.WriteString("**Results:**\n")
	fmt.Fprintf(&b, "• Unfollowed: %d", result.Unfollowed)
	if result.Failed > 0 {
		fmt.Fprintf(&b, "\n• Failed: %d", result.Failed)
	}
	return b.String()
}

// OutcomeEmbed picks the embed for a runner outcome
func OutcomeEmbed(outcome runner.Outcome, now time.Time) *discordgo.MessageEmbed {
	switch outcome.Status {
	case runner.StatusConfigError:
		return ConfigErrorEmbed()
	case runner.StatusCooldown:
		return CooldownEmbed(outcome.Gate)
	case runner.StatusBusy:
		return BusyEmbed(outcome.Gate)
	case runner.StatusCompleted:
		if outcome.Result != nil {
			return ResultEmbed(outcome.Result, outcome.CooldownDuration, now)
		}
	}
	return ErrorEmbed(outcome.Err)
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxDescription {
		return s
	}
	return string(runes[:maxDescription-1]) + "…"
}
