package wordpress

import (
	"encoding/json"

	"podcast-sync/pkg/domain"
)

// Reasons synthesized while normalizing meta endpoint responses.
const (
	reasonInvalidJSON = "invalid_json"
)

// metaResponse is the union of the response shapes the meta endpoint has
// been observed to return.
type metaResponse struct {
	OK      *bool  `json:"ok"`
	Updated bool   `json:"updated"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason"`
}

// decodeMetaResponse normalizes a meta endpoint response into a WriteOutcome.
// Precedence order, checked top to bottom:
//  1. body is not JSON            -> failed, reason "invalid_json"
//  2. HTTP error or "ok": false   -> failed, remote reason else "update_failed"
//     (skipped is preserved so a conditional-write no-op reported through an
//     error status still reads as already_has_value)
//  3. success                     -> updated/skipped/reason as sent
func decodeMetaResponse(statusCode int, body []byte) domain.WriteOutcome {
	var mr metaResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return domain.WriteOutcome{Reason: reasonInvalidJSON}
	}

	if statusCode < 200 || statusCode > 299 || (mr.OK != nil && !*mr.OK) {
		reason := mr.Reason
		if reason == "" {
			reason = domain.ReasonUpdateFailed
		}
		return domain.WriteOutcome{Skipped: mr.Skipped, Reason: reason}
	}

	return domain.WriteOutcome{
		Updated: mr.Updated,
		Skipped: mr.Skipped,
		Reason:  mr.Reason,
	}
}
