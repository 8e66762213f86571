package bot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"igunfollow/internal/runner"
	"igunfollow/pkg/config"
	"igunfollow/pkg/cooldown"
	"igunfollow/pkg/models"
	"igunfollow/pkg/unfollow"
)

func configWithToken(token string) config.DiscordConfig {
	return config.DiscordConfig{Token: token, CommandName: "unfollow"}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0h 0m 0s"},
		{59, "0h 0m 59s"},
		{3600, "1h 0m 0s"},
		{86399, "23h 59m 59s"},
		{18187, "5h 3m 7s"},
		{-5, "0h 0m 0s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds))
	}
}

func TestCooldownText(t *testing.T) {
	assert.Equal(t, "24 hours", cooldownText(24*time.Hour))
	assert.Equal(t, "1 hour", cooldownText(time.Hour))
	assert.Equal(t, "0h 30m 0s", cooldownText(30*time.Minute))
}

func TestCooldownEmbedWithoutUser(t *testing.T) {
	embed := CooldownEmbed(cooldown.Status{OnCooldown: true, Remaining: time.Minute})
	assert.True(t, strings.HasPrefix(embed.Description, "Someone used this command recently."))
}

func TestResultTextNoActionNeeded(t *testing.T) {
	text := ResultText(&unfollow.Result{TotalFollowing: 4, TotalFollowers: 9, NoActionNeeded: true, Success: true})
	assert.Equal(t, "✅ Everyone follows you back!\n\n**Stats:**\n• Following: 4\n• Followers: 9", text)
}

func TestResultTextOmitsZeroFailures(t *testing.T) {
	text := ResultText(&unfollow.Result{TotalFollowing: 3, TotalFollowers: 1, NonReciprocalCount: 2, Unfollowed: 2, Success: true})
	assert.Contains(t, text, "✅ **Unfollow Complete**")
	assert.Contains(t, text, "• Non-followers: 2")
	assert.NotContains(t, text, "Failed")
}

func TestResultEmbedDryRun(t *testing.T) {
	result := &unfollow.Result{
		TotalFollowing:     2,
		TotalFollowers:     1,
		NonReciprocalCount: 1,
		DryRun:             true,
		Accounts:           []models.Account{{ID: "2", Username: "one_way"}},
	}

	embed := ResultEmbed(result, 24*time.Hour, time.Now())

	assert.Contains(t, embed.Description, "**Would unfollow:**\n• one_way")
	assert.Equal(t, "Dry run, cooldown not started", embed.Footer.Text)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", maxDescription+10)
	out := truncate(long)
	assert.Equal(t, maxDescription, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "…"))
	assert.Equal(t, "short", truncate("short"))
}

func TestOutcomeEmbed(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "❌ Configuration Error", OutcomeEmbed(runner.Outcome{Status: runner.StatusConfigError}, now).Title)
	assert.Equal(t, ColorRed, OutcomeEmbed(runner.Outcome{Status: runner.StatusFailed, Err: errors.New("incorrect password")}, now).Color)
	assert.Equal(t, "❌ **Error**\n\nunknown error", OutcomeEmbed(runner.Outcome{Status: runner.StatusCompleted}, now).Description)
}
