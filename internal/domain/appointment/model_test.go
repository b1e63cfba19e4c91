package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusActive, StatusCheckin}, {StatusActive, StatusCancel}, {StatusActive, StatusInactive},
		{StatusInactive, StatusActive}, {StatusInactive, StatusCheckin}, {StatusInactive, StatusCancel},
		{StatusCheckin, StatusActive}, {StatusCheckin, StatusCancel},
		{StatusCancel, StatusActive},
	}
	denied := [][2]string{
		{StatusActive, StatusActive}, {StatusCheckin, StatusInactive}, {StatusCancel, StatusCheckin},
		{StatusCancel, StatusCancel}, {"unknown", StatusActive},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestAppointment_InQueue(t *testing.T) {
	assert.True(t, (&Appointment{Status: StatusActive}).InQueue())
	assert.False(t, (&Appointment{Status: StatusActive, IsScheduled: true}).InQueue())
	assert.False(t, (&Appointment{Status: StatusCheckin}).InQueue())
}

func TestAppointment_CreatedByUser(t *testing.T) {
	creator := "u1"
	a := &Appointment{CreatedBy: &creator}
	assert.True(t, a.CreatedByUser("u1"))
	assert.False(t, a.CreatedByUser("u2"))
	assert.False(t, (&Appointment{}).CreatedByUser("u1"))
}
