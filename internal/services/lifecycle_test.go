package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/citizenvoice/engagement-server/internal/models"
)

func TestNextEscalationLevel(t *testing.T) {
	assert.Equal(t, models.LevelDistrict, NextEscalationLevel(models.LevelSector))
	assert.Equal(t, models.LevelOrganization, NextEscalationLevel(models.LevelDistrict))

	// Organization is terminal: escalating again stays put
	assert.Equal(t, models.LevelOrganization, NextEscalationLevel(models.LevelOrganization))

	// Unknown input restarts from the bottom
	assert.Equal(t, models.LevelSector, NextEscalationLevel("garbage"))
	assert.Equal(t, models.LevelSector, NextEscalationLevel(""))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.StatusReceived, models.StatusInProgress, true},
		{models.StatusReceived, models.StatusNeedsInfo, true},
		{models.StatusReceived, models.StatusRejected, true},
		{models.StatusReceived, models.StatusResolved, false},
		{models.StatusInProgress, models.StatusResolved, true},
		{models.StatusInProgress, models.StatusNeedsInfo, true},
		{models.StatusInProgress, models.StatusReceived, false},
		{models.StatusNeedsInfo, models.StatusInProgress, true},
		{models.StatusNeedsInfo, models.StatusResolved, true},
		{models.StatusResolved, models.StatusInProgress, false},
		{models.StatusRejected, models.StatusInProgress, false},
		{models.StatusResolved, models.StatusResolved, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransitionTerminalStatesAreDeadEnds(t *testing.T) {
	all := []string{
		models.StatusReceived, models.StatusInProgress, models.StatusNeedsInfo,
		models.StatusResolved, models.StatusRejected,
	}
	for _, to := range all {
		assert.False(t, CanTransition(models.StatusResolved, to))
		assert.False(t, CanTransition(models.StatusRejected, to))
	}
}

func TestFormatComplaintID(t *testing.T) {
	assert.Equal(t, "CM-2024-001", FormatComplaintID(2024, 1))
	assert.Equal(t, "CM-2024-042", FormatComplaintID(2024, 42))

	// Sequences past 999 keep growing without truncation
	assert.Equal(t, "CM-2025-1200", FormatComplaintID(2025, 1200))
}

func TestDeleteBlocked(t *testing.T) {
	// A node holding nothing but its own admin deletes directly; the admin
	// is already excluded from the user count by the callers.
	assert.False(t, deleteBlocked(0, 0, 0))

	// Any dependent kind blocks, at every tier alike
	assert.True(t, deleteBlocked(1, 0, 0))
	assert.True(t, deleteBlocked(0, 1, 0))
	assert.True(t, deleteBlocked(0, 0, 1))
	assert.True(t, deleteBlocked(2, 3, 4))
}

func TestRemoveURL(t *testing.T) {
	list := []string{"a.pdf", "b.jpg", "c.png"}

	assert.Equal(t, []string{"a.pdf", "c.png"}, removeURL(list, "b.jpg"))
	assert.Equal(t, []string{"a.pdf", "b.jpg", "c.png"}, removeURL(list, "missing.doc"))
	assert.Empty(t, removeURL([]string{"only.pdf"}, "only.pdf"))
	assert.Empty(t, removeURL(nil, "x"))

	// Input slice is never mutated
	assert.Equal(t, []string{"a.pdf", "b.jpg", "c.png"}, list)
}

func TestSplitName(t *testing.T) {
	first, last := splitName("Jean Claude Habimana")
	assert.Equal(t, "Jean", first)
	assert.Equal(t, "Claude Habimana", last)

	first, last = splitName("Mono")
	assert.Equal(t, "Mono", first)
	assert.Equal(t, "", last)

	first, last = splitName("")
	assert.Equal(t, "", first)
	assert.Equal(t, "", last)
}
