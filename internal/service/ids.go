package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newDocumentID returns "<kind>-<unix millis>-<uuidv7>". Older clients wrote
// "<kind>-<unix millis>", so comparing ids as strings still orders both forms
// by creation time; the uuid breaks ties within one millisecond.
func newDocumentID(kind string, now time.Time) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", kind, err)
	}
	return fmt.Sprintf("%s-%d-%s", kind, now.UnixMilli(), id.String()), nil
}
