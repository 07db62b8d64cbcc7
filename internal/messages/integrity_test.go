package messages_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-bot/internal/config"
)

// requiredKeys lists every message ID the code asks for.
func requiredKeys() []string {
	keys := []string{
		config.TKeyWishlistMissing,
		config.TKeyUpcomingHeader,
		config.TKeyUpcomingLine,
		config.TKeyUpcomingFooter,
		config.TKeyUpcomingEmpty,
		config.TKeyQueryFailed,
		config.TKeyHelp,
		config.TKeyFormatDate,
		config.TKeyEvtSummary,
		config.TKeyEvtSummaryBirth,
	}
	for _, prefix := range []string{config.TKeyNotifySeven, config.TKeyNotifyThree, config.TKeyNotifyZero} {
		for i := 1; i <= config.TemplatePoolSize; i++ {
			keys = append(keys, fmt.Sprintf(config.FormatTemplateID, prefix, i))
		}
	}
	for m := 1; m <= 12; m++ {
		keys = append(keys, fmt.Sprintf("%s%d", config.TKeyMonthPrefix, m))
	}
	return keys
}

// TestI18nIntegrity ensures every locale file defines every required key
// and nothing else, so no language silently falls back.
func TestI18nIntegrity(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("locales", "active.*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	required := requiredKeys()

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			content, err := os.ReadFile(path)
			require.NoError(t, err)

			var translations map[string]string
			require.NoError(t, json.Unmarshal(content, &translations), "Locale must be a flat JSON object")

			for _, key := range required {
				v, ok := translations[key]
				assert.True(t, ok, "Missing key %q", key)
				assert.NotEmpty(t, v, "Empty translation for %q", key)
			}
			assert.Len(t, translations, len(required), "Locale defines keys the code never uses")
		})
	}
}
