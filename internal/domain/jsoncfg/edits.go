package jsoncfg

import (
	"encoding/json"
	"fmt"
)

// EditOverlay is the envelope for a manual-edit payload attached to a
// generated asset. The operations themselves are owned by the editing
// collaborator; the engine only checks the envelope shape once at the
// boundary and stores the raw bytes.
type EditOverlay struct {
	Version    string          `json:"version"`
	Operations json.RawMessage `json:"operations"`
}

// ParseEditOverlay validates a manual-edit payload envelope.
func ParseEditOverlay(raw []byte) (EditOverlay, error) {
	var overlay EditOverlay
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return EditOverlay{}, fmt.Errorf("decode edit overlay: %w", err)
	}
	if len(overlay.Operations) == 0 {
		return EditOverlay{}, fmt.Errorf("edit overlay has no operations")
	}
	if !json.Valid(overlay.Operations) {
		return EditOverlay{}, fmt.Errorf("edit overlay operations are not valid JSON")
	}
	return overlay, nil
}

// MustMarshal serializes v and panics on failure. Reserved for payloads the
// engine itself builds from already-validated values.
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
