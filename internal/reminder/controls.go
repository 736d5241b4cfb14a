package reminder

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Control identifiers. The delete-flow ids carry the target job id as a
// fixed-length hex suffix after the double underscore; the prefixes are a
// wire contract with every still-interactive rendered message and must not
// change without versioning.
const (
	BtnPrev = "RemindBot_btnPrev"
	BtnNext = "RemindBot_btnNext"

	DelPromptPrefix  = "RemindBot_btnDeletePrompt__"
	DelConfirmPrefix = "RemindBot_btnDeleteConfirm__"
	DelCancelPrefix  = "RemindBot_btnDeleteCancel__"
)

// EncodeJobID renders a store id as a 32-character hex string for embedding
// in control identifiers.
func EncodeJobID(id uuid.UUID) string {
	return hex.EncodeToString(id[:])
}

// DecodeJobID recovers the job id from a delete-flow control identifier.
func DecodeJobID(controlID string) (uuid.UUID, error) {
	var encoded string
	switch {
	case strings.HasPrefix(controlID, DelPromptPrefix):
		encoded = controlID[len(DelPromptPrefix):]
	case strings.HasPrefix(controlID, DelConfirmPrefix):
		encoded = controlID[len(DelConfirmPrefix):]
	case strings.HasPrefix(controlID, DelCancelPrefix):
		encoded = controlID[len(DelCancelPrefix):]
	default:
		return uuid.Nil, fmt.Errorf("unknown control identifier: %s", controlID)
	}

	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid job id in control identifier %s: %w", controlID, err)
	}

	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid job id in control identifier %s: %w", controlID, err)
	}
	return id, nil
}

// navigationRow builds the previous/next controls shared by every list state.
func navigationRow() []Control {
	return []Control{
		{ID: BtnPrev, Label: "Previous", Style: StylePrimary},
		{ID: BtnNext, Label: "Next", Style: StylePrimary},
	}
}

// ListingControls builds the controls for the plain listing state:
// navigation plus a delete prompt keyed by the displayed job.
func ListingControls(jobID uuid.UUID) [][]Control {
	return [][]Control{
		navigationRow(),
		{
			{ID: DelPromptPrefix + EncodeJobID(jobID), Label: "Delete", Style: StyleDanger},
		},
	}
}

// PromptControls builds the controls for the delete-prompt state: the
// disabled Delete restatement, an armed Confirm and a Cancel, with navigation
// kept so the user can page away and abandon the prompt.
func PromptControls(jobID uuid.UUID) [][]Control {
	encoded := EncodeJobID(jobID)
	return [][]Control{
		navigationRow(),
		{
			{ID: DelPromptPrefix + encoded, Label: "Delete", Style: StyleDanger, Disabled: true},
			{ID: DelConfirmPrefix + encoded, Label: "Confirm", Style: StyleDanger},
			{ID: DelCancelPrefix + encoded, Label: "Cancel", Style: StyleSecondary},
		},
	}
}
