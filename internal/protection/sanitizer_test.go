package protection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/restguard/internal/domain"
)

func TestSanitize(t *testing.T) {
	record := domain.UserRecord{
		"id":          7,
		"name":        "Jane Doe",
		"slug":        "jane",
		"description": "Editor in chief",
		"link":        "https://example.com/author/jane",
		"avatar_urls": map[string]any{"24": "https://gravatar.com/a.png"},
		"meta":        map[string]any{"persisted_preferences": "x"},
		"url":         "https://jane.example.com",
	}

	t.Run("sanitized decision redacts fields", func(t *testing.T) {
		out := Sanitize(record, domain.AllowSanitized())
		assert.Equal(t, "User #7", out["name"])
		assert.Equal(t, "user-7", out["slug"])
		assert.Equal(t, "", out["description"])
		assert.Equal(t, "", out["link"])
		assert.Equal(t, map[string]any{}, out["avatar_urls"])
		assert.Equal(t, map[string]any{}, out["meta"])
		assert.Equal(t, "https://jane.example.com", out["url"])
		assert.Equal(t, 7, out["id"])
	})

	t.Run("input record is not mutated", func(t *testing.T) {
		_ = Sanitize(record, domain.AllowSanitized())
		assert.Equal(t, "Jane Doe", record["name"])
	})

	t.Run("other outcomes pass through", func(t *testing.T) {
		for _, d := range []domain.Decision{domain.Allow(), domain.BlockForbidden(), domain.BlockUnauthenticated()} {
			assert.Equal(t, record, Sanitize(record, d))
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		d := domain.AllowSanitized()
		once := Sanitize(record, d)
		twice := Sanitize(once, d)
		assert.Equal(t, once, twice)
	})

	t.Run("fields are set even when absent", func(t *testing.T) {
		out := Sanitize(domain.UserRecord{"id": 3}, domain.AllowSanitized())
		assert.Equal(t, "User #3", out["name"])
		assert.Equal(t, map[string]any{}, out["avatar_urls"])
	})
}

func TestSanitizeDecodedJSON(t *testing.T) {
	var rec domain.UserRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"name":"Jane Doe"}`), &rec))

	out := Sanitize(rec, domain.AllowSanitized())
	assert.Equal(t, "User #7", out["name"])
	assert.Equal(t, "user-7", out["slug"])
}

func TestSanitizeAll(t *testing.T) {
	records := []domain.UserRecord{{"id": json.Number("1"), "name": "a"}, {"id": json.Number("2"), "name": "b"}}

	out := SanitizeAll(records, domain.AllowSanitized())
	require.Len(t, out, 2)
	assert.Equal(t, "User #1", out[0]["name"])
	assert.Equal(t, "User #2", out[1]["name"])

	assert.Equal(t, records, SanitizeAll(records, domain.Allow()))
}

func TestConcreteSanitizeScenario(t *testing.T) {
	cfg := domain.ProtectionConfig{Enabled: true, Mode: domain.ModeSanitize, RequiredCapability: "list_users"}
	d := Decide(cfg, domain.RequestContext{IsLoggedIn: true, HasCapability: false})
	assert.Equal(t, domain.OutcomeAllowedSanitized, d.Outcome)

	out := Sanitize(domain.UserRecord{"id": 7, "name": "Jane Doe"}, d)
	assert.Equal(t, 7, out["id"])
	assert.Equal(t, "User #7", out["name"])
	assert.Equal(t, "user-7", out["slug"])
}
