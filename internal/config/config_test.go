package config_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-bot/internal/config"
)

func TestIdentity(t *testing.T) {
	for name, v := range map[string]string{
		"AppName":        config.AppName,
		"AppID":          config.AppID,
		"Version":        config.Version,
		"Commit":         config.Commit,
		"KeyringService": config.KeyringService,
		"ICalProdid":     config.ICalProdid,
	} {
		assert.NotEmpty(t, v, name)
	}
	assert.True(t, strings.HasPrefix(config.UserAgent, "Birthday-Bot/"), "UserAgent must start with the product token")
	assert.True(t, strings.HasSuffix(config.UserAgent, config.Version))
}

// TestVersionOutput_CarriesCommit checks the -version line names the build commit.
func TestVersionOutput_CarriesCommit(t *testing.T) {
	assert.Equal(t, 5, strings.Count(config.MsgVersionOutput, "%s"))
	got := fmt.Sprintf(config.MsgVersionOutput, config.AppName, "1.2.0", "3f9c2ab", "linux", "amd64")
	assert.Contains(t, got, "1.2.0")
	assert.Contains(t, got, "3f9c2ab")
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, "not provided", config.WishlistNotProvided)
	assert.Equal(t, "Лист1!A:C", config.DefaultSheetRange)
	assert.Equal(t, 2000, config.DefaultLeapYear, "Year-less vCard dates need a leap year so Feb 29 survives")

	_, err := time.LoadLocation(config.DefaultTimezone)
	require.NoError(t, err, "Default timezone must be loadable")

	h, m, err := config.ParseNotifyTime(config.DefaultNotifyTime)
	require.NoError(t, err)
	assert.Equal(t, []int{9, 0}, []int{h, m})

	assert.NoError(t, config.ValidatePort(config.DefaultPort))
}

func TestRoster_ColumnLayout(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, []int{config.ColName, config.ColDate, config.ColWishlist})
	_, err := time.Parse(config.RosterDateLayout, "1990-06-08")
	assert.NoError(t, err)
}

func TestRoutes_AreDistinctAbsolutePaths(t *testing.T) {
	routes := []string{config.RouteHealth, config.RouteRunDaily, config.RouteWebhook, config.RouteCalendar}
	seen := map[string]bool{}
	for _, r := range routes {
		assert.True(t, strings.HasPrefix(r, "/"), r)
		assert.False(t, seen[r], "duplicate route %s", r)
		seen[r] = true
	}
}

func TestTelegramLimits(t *testing.T) {
	assert.Equal(t, 4096, config.TelegramMaxRunes)
	assert.Equal(t, 5, config.SendRetryLimit)
	assert.Less(t, config.PollTimeout, config.HTTPTimeout+config.PollTimeout, "The HTTP client must outlive a long poll")
	assert.Greater(t, config.PollErrorBackoff, time.Duration(0))
}

func TestNetworkLimits(t *testing.T) {
	assert.Greater(t, config.HTTPTimeout, time.Duration(0))
	assert.LessOrEqual(t, config.HTTPTimeout, 2*time.Minute)
	assert.Greater(t, config.ShutdownTimeout, time.Duration(0))
	assert.Less(t, int64(config.MaxWebhookBodySize), int64(config.MaxHTTPResponseSize))
	assert.Less(t, int64(config.MaxHTTPResponseSize), int64(1<<30), "Downloads are held in memory")
}

// TestAlarmTriggers_MatchTiers keeps the calendar alarms aligned with the notification tiers.
func TestAlarmTriggers_MatchTiers(t *testing.T) {
	assert.Equal(t, []string{"-P7D", "-P3D", "PT0S"}, config.AlarmTriggers)
}
