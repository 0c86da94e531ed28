package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/citizenvoice/engagement-server/internal/models"
)

func TestNotificationTitle(t *testing.T) {
	assert.Equal(t, "Complaint CM-2024-007 status updated",
		notificationTitle(models.NotifStatusChange, "CM-2024-007"))
	assert.Equal(t, "New comment on your complaint CM-2024-007",
		notificationTitle(models.NotifComment, "CM-2024-007"))
	assert.Equal(t, "Complaint CM-2024-007 has been escalated",
		notificationTitle(models.NotifEscalation, "CM-2024-007"))
	assert.Equal(t, "Complaint CM-2024-007 has been resolved",
		notificationTitle(models.NotifResolution, "CM-2024-007"))

	// Anything unrecognized falls back to a generic update
	assert.Equal(t, "Update on your complaint CM-2024-007",
		notificationTitle(models.NotifSystem, "CM-2024-007"))
	assert.Equal(t, "Update on your complaint CM-2024-007",
		notificationTitle("", "CM-2024-007"))
}
