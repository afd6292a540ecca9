// Package triage is the officer dashboard: it classifies requests into
// New / Accepted / Overdue against the current time and drives the
// confirm-gated accept and delete workflow.
package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/patiponrmutl/thaimilitary/models"
)

type Category string

const (
	New      Category = "new"
	Accepted Category = "accepted"
	Overdue  Category = "overdue"
)

// Categories in tab order.
var Categories = []Category{New, Accepted, Overdue}

// Classify is recomputed on every render: a pending request turns
// Overdue as soon as its appointment passes, with no write to the store.
func Classify(r models.Request, now time.Time) Category {
	if r.Status == models.StatusAccepted {
		return Accepted
	}
	if r.AppointmentDate != nil && r.AppointmentDate.Before(now) {
		return Overdue
	}
	return New
}

// ParseCategory accepts the tab ids used by clients. "pending" is the
// legacy id of the New tab.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "new", "pending":
		return New, nil
	case "accepted":
		return Accepted, nil
	case "overdue":
		return Overdue, nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Label is the Thai tab caption.
func (c Category) Label() string {
	switch c {
	case New:
		return "งานใหม่ (ยังไม่รับเรื่อง)"
	case Accepted:
		return "รับเรื่องแล้ว"
	case Overdue:
		return "งานค้าง / เกินกำหนด"
	}
	return string(c)
}

// Filter keeps the requests in category c, preserving order.
func Filter(reqs []models.Request, c Category, now time.Time) []models.Request {
	out := []models.Request{}
	for _, r := range reqs {
		if Classify(r, now) == c {
			out = append(out, r)
		}
	}
	return out
}

type Counts struct {
	New      int `json:"new" yaml:"new"`
	Accepted int `json:"accepted" yaml:"accepted"`
	Overdue  int `json:"overdue" yaml:"overdue"`
}

func (c Counts) Of(cat Category) int {
	switch cat {
	case New:
		return c.New
	case Accepted:
		return c.Accepted
	case Overdue:
		return c.Overdue
	}
	return 0
}

// Count classifies every request once with the same now.
func Count(reqs []models.Request, now time.Time) Counts {
	var c Counts
	for _, r := range reqs {
		switch Classify(r, now) {
		case New:
			c.New++
		case Accepted:
			c.Accepted++
		case Overdue:
			c.Overdue++
		}
	}
	return c
}
