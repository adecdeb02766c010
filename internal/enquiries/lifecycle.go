package enquiries

import (
	"fmt"
	"strings"
	"time"

	"github.com/showroom-dms/showroom/internal/shared"
)

// PlanUpdate applies a patch to an enquiry and returns the updated record and
// the log entries to append. A preference change and a status change each
// produce their own entry; a generic Update entry is only written when neither
// happened but something else changed. An empty plan means nothing changed.
func PlanUpdate(prev Enquiry, patch UpdateRequest, actorName string, now time.Time) (Enquiry, []LogEntry, error) {
	if prev.Status.Terminal() {
		return Enquiry{}, nil, shared.PreconditionFailed("enquiry %d is %s", prev.ID, prev.Status.Label())
	}
	next := prev
	otherChanged := false

	if patch.Temperature != nil {
		temp, err := ParseTemperature(*patch.Temperature)
		if err != nil {
			return Enquiry{}, nil, shared.Invalid("temperature", "must be Hot, Warm or Cold")
		}
		otherChanged = otherChanged || temp != prev.Temperature
		next.Temperature = temp
	}
	if patch.FollowUp != nil {
		followUp, err := parseOptionalDate("follow_up", *patch.FollowUp)
		if err != nil {
			return Enquiry{}, nil, err
		}
		otherChanged = otherChanged || !sameDate(followUp, prev.NextFollowUp)
		next.NextFollowUp = followUp
	}
	if patch.IsFinance != nil {
		otherChanged = otherChanged || *patch.IsFinance != prev.IsFinance
		next.IsFinance = *patch.IsFinance
	}
	if patch.IsExchange != nil {
		otherChanged = otherChanged || *patch.IsExchange != prev.IsExchange
		next.IsExchange = *patch.IsExchange
	}
	remarks := strings.TrimSpace(patch.Remarks)
	otherChanged = otherChanged || remarks != ""

	if patch.Model != nil && strings.TrimSpace(*patch.Model) != "" {
		next.Model = strings.TrimSpace(*patch.Model)
	}
	if patch.Color != nil {
		next.Color = strings.TrimSpace(*patch.Color)
	}
	preferenceChanged := next.Model != prev.Model || next.Color != prev.Color

	statusChanged := false
	if patch.Status != nil {
		status, err := ParseEnquiryStatus(*patch.Status)
		if err != nil {
			return Enquiry{}, nil, shared.Invalid("status", "unknown status %q", *patch.Status)
		}
		if status != prev.Status {
			switch status {
			case StatusBooked:
				return Enquiry{}, nil, shared.PreconditionFailed("enquiries are booked by paying a token")
			case StatusConverted:
				return Enquiry{}, nil, shared.PreconditionFailed("enquiries convert when the gate pass is issued")
			}
			if !prev.Status.CanTransition(status) {
				return Enquiry{}, nil, shared.PreconditionFailed("cannot move enquiry from %s to %s", prev.Status.Label(), status.Label())
			}
			statusChanged = true
			next.Status = status
		}
	}
	if next.Status == StatusLost {
		reason := ""
		if patch.LostReason != nil {
			reason = strings.TrimSpace(*patch.LostReason)
		}
		if reason == "" {
			return Enquiry{}, nil, shared.Invalid("lost_reason", "is required when marking an enquiry lost")
		}
		next.LostReason = reason
	}

	var logs []LogEntry
	entry := func(action Action, text string) LogEntry {
		return LogEntry{
			EnquiryID:        prev.ID,
			ActorName:        actorName,
			Action:           action,
			Remarks:          text,
			PreviousFollowUp: prev.NextFollowUp,
			NewFollowUp:      next.NextFollowUp,
			CreatedAt:        now,
		}
	}
	if preferenceChanged {
		logs = append(logs, entry(ActionPreferenceChange,
			fmt.Sprintf("%s → %s", describePreference(prev.Model, prev.Color), describePreference(next.Model, next.Color))))
	}
	if statusChanged {
		text := "Status changed to " + next.Status.Label() + "."
		if next.Status == StatusLost {
			text += " Reason: " + next.LostReason
		}
		if remarks != "" {
			text += " " + remarks
		}
		logs = append(logs, entry(ActionStatusChange, text))
		next.Remarks = appendRemark(next.Remarks, now, text)
	} else if !preferenceChanged && otherChanged {
		text := remarks
		if text == "" {
			text = "Details updated"
		}
		logs = append(logs, entry(ActionUpdate, text))
		next.Remarks = appendRemark(next.Remarks, now, text)
	} else if remarks != "" {
		next.Remarks = appendRemark(next.Remarks, now, remarks)
	}
	return next, logs, nil
}

func describePreference(model, color string) string {
	if color == "" {
		color = "No Color"
	}
	return fmt.Sprintf("%s (%s)", model, color)
}

// appendRemark keeps the free-text remarks readable for the list screens.
// The log table is the record of what happened.
func appendRemark(existing string, at time.Time, text string) string {
	line := fmt.Sprintf("[%s] %s", at.Format("2006-01-02 15:04"), text)
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

func parseOptionalDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, shared.Invalid(field, "must be YYYY-MM-DD")
	}
	return &t, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Format(dateLayout) == b.Format(dateLayout)
}
