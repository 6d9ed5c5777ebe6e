package httpapi

import (
	"github.com/Leganyst/cleaning-calendar/internal/calendar"
	"github.com/Leganyst/cleaning-calendar/internal/service"
)

// BookingRequest — тело POST /bookings и /bookings/preview.
type BookingRequest struct {
	Date        string `json:"date" binding:"required"`
	TimeSlot    string `json:"timeSlot" binding:"required"`
	Description string `json:"description"`
	ClientName  string `json:"clientName"`
	Address     string `json:"address"`
	Recurrence  string `json:"recurrence"`
}

// Template разбирает дату; остальное проверяет сервис.
func (r BookingRequest) Template() (calendar.Template, error) {
	d, err := calendar.ParseDate(r.Date)
	if err != nil {
		return calendar.Template{}, &calendar.TemplateError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	return calendar.Template{
		Date:        d,
		TimeSlot:    calendar.TimeSlot(r.TimeSlot),
		Description: r.Description,
		ClientName:  r.ClientName,
		Address:     r.Address,
		Recurrence:  calendar.Recurrence(r.Recurrence),
	}, nil
}

type SubmitResponse struct {
	SubmissionID string             `json:"submissionId"`
	Action       service.Action     `json:"action"`
	Created      []calendar.Record  `json:"created"`
	Updated      *calendar.Record   `json:"updated,omitempty"`
	Rejected     []calendar.SlotKey `json:"rejected"`
	Warning      string             `json:"warning,omitempty"`
	Bookings     []calendar.Record  `json:"bookings"`
}

func toSubmitResponse(res *service.SubmitResult) *SubmitResponse {
	if res == nil {
		return nil
	}
	return &SubmitResponse{
		SubmissionID: res.SubmissionID,
		Action:       res.Action,
		Created:      nonNil(res.Created),
		Updated:      res.Updated,
		Rejected:     nonNil(res.Rejected),
		Warning:      res.Warning,
		Bookings:     nonNil(res.View),
	}
}

type PreviewResponse struct {
	Action   service.Action      `json:"action"`
	ToCreate []calendar.Template `json:"toCreate"`
	ToUpdate *UpdatePlan         `json:"toUpdate,omitempty"`
	Rejected []calendar.SlotKey  `json:"rejected"`
	Warning  string              `json:"warning,omitempty"`
}

type UpdatePlan struct {
	ID       string            `json:"id"`
	Template calendar.Template `json:"booking"`
}

func toPreviewResponse(p *service.Preview) *PreviewResponse {
	resp := &PreviewResponse{
		Action:   p.Action,
		ToCreate: nonNil(p.ToCreate),
		Rejected: nonNil(p.Rejected),
		Warning:  p.Warning,
	}
	if p.ToUpdate != nil {
		resp.ToUpdate = &UpdatePlan{ID: p.ToUpdate.ID, Template: p.ToUpdate.Template}
	}
	return resp
}

type DeleteResponse struct {
	Deleted bool             `json:"deleted"`
	Booking *calendar.Record `json:"booking,omitempty"`
}

// nonNil — пустые списки отдаём как [], а не null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
