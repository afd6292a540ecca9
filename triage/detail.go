package triage

import (
	"fmt"
	"time"

	"github.com/patiponrmutl/thaimilitary/models"
)

type Banner string

const (
	BannerNone     Banner = ""
	BannerOverdue  Banner = "overdue"
	BannerAccepted Banner = "accepted"
)

func (b Banner) Text() string {
	switch b {
	case BannerOverdue:
		return "รายการนี้เกินเวลานัดหมายแล้ว"
	case BannerAccepted:
		return "รับเรื่องเรียบร้อยแล้ว"
	}
	return ""
}

type Contact struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Color string `json:"color"`
}

// Detail is the inspect view of one request.
type Detail struct {
	Request     models.Request `json:"request"`
	Category    Category       `json:"category"`
	Banner      Banner         `json:"banner,omitempty"`
	BannerText  string         `json:"bannerText,omitempty"`
	Appointment string         `json:"appointment"`
	Contacts    []Contact      `json:"contacts"`
	CanAccept   bool           `json:"canAccept"`
	CanDelete   bool           `json:"canDelete"`
}

// Row is one line of the tab table.
type Row struct {
	ID          string   `json:"id"`
	Appointment string   `json:"appointment"`
	ServiceType string   `json:"serviceType"`
	FullName    string   `json:"fullName"`
	Category    Category `json:"category"`
}

func NewDetail(r models.Request, now time.Time, loc *time.Location) Detail {
	cat := Classify(r, now)
	d := Detail{
		Request:     r,
		Category:    cat,
		Appointment: FormatLong(r.AppointmentDate, loc),
		Contacts:    contacts(r),
		CanAccept:   r.Status != models.StatusAccepted,
		CanDelete:   true,
	}
	switch cat {
	case Overdue:
		d.Banner = BannerOverdue
	case Accepted:
		d.Banner = BannerAccepted
	}
	d.BannerText = d.Banner.Text()
	return d
}

func NewRow(r models.Request, now time.Time, loc *time.Location) Row {
	return Row{
		ID:          r.ID,
		Appointment: FormatShort(r.AppointmentDate, loc),
		ServiceType: r.ServiceType,
		FullName:    r.FullName,
		Category:    Classify(r, now),
	}
}

// ช่องทางติดต่อที่ว่างจะไม่แสดง
func contacts(r models.Request) []Contact {
	out := []Contact{}
	for _, c := range []Contact{
		{Label: "เบอร์โทร", Value: r.Phone, Color: "gray"},
		{Label: "Line ID", Value: r.LineID, Color: "green"},
		{Label: "Facebook", Value: r.Facebook, Color: "blue"},
		{Label: "Email", Value: r.Email, Color: "gray"},
	} {
		if c.Value != "" {
			out = append(out, c)
		}
	}
	return out
}

// FormatShort renders t as d/m/yy HH:MM in the Buddhist era, "-" when nil.
func FormatShort(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	lt := inLoc(*t, loc)
	return fmt.Sprintf("%d/%d/%02d %02d:%02d", lt.Day(), int(lt.Month()), (lt.Year()+543)%100, lt.Hour(), lt.Minute())
}

// FormatLong renders t as d/m/yyyy HH:MM:SS in the Buddhist era, "-" when nil.
func FormatLong(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	lt := inLoc(*t, loc)
	return fmt.Sprintf("%d/%d/%d %02d:%02d:%02d", lt.Day(), int(lt.Month()), lt.Year()+543, lt.Hour(), lt.Minute(), lt.Second())
}

func inLoc(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}
