package provider

import (
	"github.com/google/uuid"
)

// ValidateID checks that id is a MusicBrainz-style UUID in its canonical
// 36-character hyphenated form, returning ErrInvalidID otherwise.
func ValidateID(id string) error {
	if len(id) != 36 {
		return &ErrInvalidID{ID: id}
	}
	if _, err := uuid.Parse(id); err != nil {
		return &ErrInvalidID{ID: id}
	}
	return nil
}
