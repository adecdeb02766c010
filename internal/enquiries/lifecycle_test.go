package enquiries

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showroom-dms/showroom/internal/shared"
)

func str(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

func openEnquiry() Enquiry {
	follow := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return Enquiry{
		ID:           4,
		CustomerName: "Ravi Kumar",
		Model:        "Splendor Plus",
		Color:        "Black",
		Temperature:  TemperatureWarm,
		Status:       StatusOpen,
		NextFollowUp: &follow,
	}
}

func actions(logs []LogEntry) []Action {
	out := []Action{}
	for _, l := range logs {
		out = append(out, l.Action)
	}
	return out
}

func TestPlanUpdateClassification(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		patch UpdateRequest
		want  []Action
	}{
		{name: "nothing changed", patch: UpdateRequest{Model: str("Splendor Plus"), Color: str("Black")}, want: []Action{}},
		{name: "preference only", patch: UpdateRequest{Model: str("Passion Pro"), Color: str("Red")}, want: []Action{ActionPreferenceChange}},
		{name: "color only", patch: UpdateRequest{Color: str("Blue")}, want: []Action{ActionPreferenceChange}},
		{name: "preference with other edits", patch: UpdateRequest{Model: str("Passion Pro"), Temperature: str("Hot"), Remarks: "likes red"}, want: []Action{ActionPreferenceChange}},
		{name: "status only", patch: UpdateRequest{Status: str("Lost"), LostReason: str("Bought elsewhere")}, want: []Action{ActionStatusChange}},
		{
			name:  "preference and status",
			patch: UpdateRequest{Model: str("Glamour"), Status: str("Lost"), LostReason: str("Price"), Temperature: str("Cold")},
			want:  []Action{ActionPreferenceChange, ActionStatusChange},
		},
		{name: "temperature only", patch: UpdateRequest{Temperature: str("hot")}, want: []Action{ActionUpdate}},
		{name: "follow up only", patch: UpdateRequest{FollowUp: str("2026-03-20")}, want: []Action{ActionUpdate}},
		{name: "finance flag", patch: UpdateRequest{IsFinance: boolPtr(true)}, want: []Action{ActionUpdate}},
		{name: "same status", patch: UpdateRequest{Status: str("open")}, want: []Action{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, logs, err := PlanUpdate(openEnquiry(), tc.patch, "Suresh", now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, actions(logs))
			for _, l := range logs {
				assert.Equal(t, "Suresh", l.ActorName)
				assert.Equal(t, int64(4), l.EnquiryID)
			}
		})
	}
}

func TestPlanUpdateMessages(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	next, logs, err := PlanUpdate(openEnquiry(), UpdateRequest{
		Model: str("Glamour"), Color: str(""), Status: str("Lost"), LostReason: str(" Price "), FollowUp: str("2026-03-21"),
	}, "Suresh", now)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Splendor Plus (Black) → Glamour (No Color)", logs[0].Remarks)
	assert.Equal(t, "Status changed to Lost. Reason: Price", logs[1].Remarks)
	assert.Equal(t, "2026-03-10", logs[1].PreviousFollowUp.Format(dateLayout))
	assert.Equal(t, "2026-03-21", logs[1].NewFollowUp.Format(dateLayout))
	assert.Equal(t, StatusLost, next.Status)
	assert.Equal(t, "Price", next.LostReason)
	assert.Contains(t, next.Remarks, "Status changed to Lost")
}

func TestPlanUpdateRejections(t *testing.T) {
	now := time.Now()
	booked := openEnquiry()
	booked.Status = StatusBooked
	lost := openEnquiry()
	lost.Status = StatusLost
	converted := openEnquiry()
	converted.Status = StatusConverted

	cases := []struct {
		name string
		prev Enquiry
		req  UpdateRequest
		want error
	}{
		{"lost without reason", openEnquiry(), UpdateRequest{Status: str("Lost"), LostReason: str("  ")}, shared.ErrValidation},
		{"book through update", openEnquiry(), UpdateRequest{Status: str("Booked")}, shared.ErrPreconditionFailed},
		{"convert through update", booked, UpdateRequest{Status: str("Converted")}, shared.ErrPreconditionFailed},
		{"booked to lost", booked, UpdateRequest{Status: str("Lost"), LostReason: str("x")}, shared.ErrPreconditionFailed},
		{"reopen lost", lost, UpdateRequest{Status: str("Open")}, shared.ErrPreconditionFailed},
		{"edit converted", converted, UpdateRequest{Temperature: str("Hot")}, shared.ErrPreconditionFailed},
		{"unknown status", openEnquiry(), UpdateRequest{Status: str("Maybe")}, shared.ErrValidation},
		{"unknown temperature", openEnquiry(), UpdateRequest{Temperature: str("Lukewarm")}, shared.ErrValidation},
		{"bad follow up", openEnquiry(), UpdateRequest{FollowUp: str("tomorrow")}, shared.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := PlanUpdate(tc.prev, tc.req, "Suresh", now)
			assert.True(t, errors.Is(err, tc.want), err)
		})
	}
}

func TestStatusMachine(t *testing.T) {
	assert.True(t, StatusOpen.CanTransition(StatusBooked))
	assert.True(t, StatusOpen.CanTransition(StatusLost))
	assert.True(t, StatusBooked.CanTransition(StatusConverted))
	assert.False(t, StatusOpen.CanTransition(StatusConverted))
	assert.False(t, StatusBooked.CanTransition(StatusOpen))
	assert.False(t, StatusLost.CanTransition(StatusOpen))
	assert.True(t, StatusConverted.Terminal())
	assert.True(t, StatusLost.Terminal())
	assert.False(t, StatusBooked.Terminal())

	for raw, want := range map[string]Status{"Open": StatusOpen, " booked ": StatusBooked, "CONVERTED": StatusConverted, "lost": StatusLost} {
		got, err := ParseEnquiryStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseEnquiryStatus("pending")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
