package protection

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cast"
	"github.com/xela07ax/restguard/internal/domain"
)

// Sanitize возвращает обезличенную копию записи, если решение AllowedSanitized.
// Значения полей зависят только от id, поэтому повторное применение ничего не меняет.
func Sanitize(record domain.UserRecord, d domain.Decision) domain.UserRecord {
	if d.Outcome != domain.OutcomeAllowedSanitized || record == nil {
		return record
	}

	out := make(domain.UserRecord, len(record)+6)
	for k, v := range record {
		out[k] = v
	}

	id := recordID(record["id"])
	out["name"] = "User #" + id
	out["slug"] = "user-" + id
	out["description"] = ""
	out["link"] = ""
	out["avatar_urls"] = map[string]any{}
	out["meta"] = map[string]any{}

	return out
}

// SanitizeAll применяет Sanitize к каждой записи списка.
func SanitizeAll(records []domain.UserRecord, d domain.Decision) []domain.UserRecord {
	if d.Outcome != domain.OutcomeAllowedSanitized {
		return records
	}
	out := make([]domain.UserRecord, len(records))
	for i, r := range records {
		out[i] = Sanitize(r, d)
	}
	return out
}

// recordID печатает id так, как его вернул WordPress (7, а не 7.000000).
func recordID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return cast.ToString(id)
	}
}
