package ladder

import (
	"bytes"
	"encoding/json"

	"coinladder/internal/models"
)

// ParseRules validates a free-form rule payload and returns the typed rules.
// Unknown fields, trailing garbage, and rules failing validation all reject
// the whole payload; a malformed payload is never partially applied.
func ParseRules(payload []byte) ([]ExitRule, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var rules []ExitRule
	if err := dec.Decode(&rules); err != nil {
		return nil, &models.ValidationError{Field: "rules", Reason: "malformed rule payload: " + err.Error()}
	}
	if dec.More() {
		return nil, &models.ValidationError{Field: "rules", Reason: "trailing data after rule payload"}
	}
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return nil, err
		}
	}
	return rules, nil
}
