// Package intake validates citizen appointment requests and hands them
// to the request store.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patiponrmutl/thaimilitary/models"
	"github.com/patiponrmutl/thaimilitary/store"
)

const idCardLength = 13

var ErrValidation = errors.New("validation failed")

// ValidationError names the offending field. Message is shown to the
// citizen as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Submission is the raw form body.
type Submission struct {
	ServiceType     string `json:"serviceType"`
	FullName        string `json:"fullName"`
	IDCard          string `json:"idCard"`
	Phone           string `json:"phone"`
	Facebook        string `json:"facebook"`
	LineID          string `json:"lineId"`
	Email           string `json:"email"`
	AppointmentDate string `json:"appointmentDate"`
}

// Creator is the part of the store the form writes to.
type Creator interface {
	Create(ctx context.Context, r *models.Request) (string, error)
}

type Form struct {
	store Creator
	loc   *time.Location
}

// NewForm parses datetime-local values in loc.
func NewForm(s Creator, loc *time.Location) *Form {
	if loc == nil {
		loc = time.Local
	}
	return &Form{store: s, loc: loc}
}

// Submit validates sub and creates a pending request. Nothing is
// written when validation fails.
func (f *Form) Submit(ctx context.Context, sub Submission) (models.Request, error) {
	r, err := f.Validate(sub)
	if err != nil {
		return models.Request{}, err
	}

	id, err := f.store.Create(ctx, &r)
	if err != nil {
		if !errors.Is(err, store.ErrStoreOperation) {
			err = fmt.Errorf("%w: %w", store.ErrStoreOperation, err)
		}
		return models.Request{}, fmt.Errorf("submit request: %w", err)
	}
	r.ID = id
	return r, nil
}

// Validate normalises sub into a pending request without touching the store.
func (f *Form) Validate(sub Submission) (models.Request, error) {
	name := strings.TrimSpace(sub.FullName)
	if name == "" {
		return models.Request{}, &ValidationError{Field: "fullName", Message: "กรุณากรอกชื่อ-นามสกุล"}
	}

	idCard := DigitsOnly(sub.IDCard)
	if len(idCard) != idCardLength {
		return models.Request{}, &ValidationError{Field: "idCard", Message: "เลขบัตรประชาชนต้องมี 13 หลัก"}
	}

	appt, err := f.parseAppointment(sub.AppointmentDate)
	if err != nil {
		return models.Request{}, &ValidationError{Field: "appointmentDate", Message: "กรุณาเลือกวันที่และเวลานัดหมาย"}
	}

	service := strings.TrimSpace(sub.ServiceType)
	if service == "" {
		service = models.DefaultService().Name
	}

	return models.Request{
		ServiceType:     service,
		FullName:        name,
		IDCard:          idCard,
		Phone:           strings.TrimSpace(sub.Phone),
		Facebook:        strings.TrimSpace(sub.Facebook),
		LineID:          strings.TrimSpace(sub.LineID),
		Email:           strings.TrimSpace(sub.Email),
		AppointmentDate: &appt,
		Status:          models.StatusPending,
	}, nil
}

// datetime-local ส่งวินาทีมาด้วยเมื่อไม่เป็นศูนย์หรือมี step
var localLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

// รับได้ทั้งค่าจาก datetime-local และ RFC3339
func (f *Form) parseAppointment(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty appointment date")
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, f.loc); err == nil {
			return t, nil
		}
	}
	return time.Parse(time.RFC3339, s)
}

// DigitsOnly drops every non-ASCII-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
