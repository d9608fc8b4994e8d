package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentID(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)

	id, err := newDocumentID("workout", now)
	require.NoError(t, err)
	assert.Regexp(t, fmt.Sprintf(`^workout-%d-[0-9a-f-]{36}$`, now.UnixMilli()), id)

	later, err := newDocumentID("workout", now)
	require.NoError(t, err)
	assert.Greater(t, later, id)

	for _, legacy := range []string{
		fmt.Sprintf("workout-%d", now.UnixMilli()),
		fmt.Sprintf("workout-%d", now.Add(-time.Millisecond).UnixMilli()),
	} {
		assert.Greater(t, id, legacy)
	}
	assert.Less(t, id, fmt.Sprintf("workout-%d", now.Add(time.Millisecond).UnixMilli()))
}
