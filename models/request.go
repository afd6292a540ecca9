package models

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
)

// Request คือคำร้องนัดหมายของประชาชน 1 รายการ (collection "military_requests")
type Request struct {
	ID          string `json:"id" gorm:"primaryKey;type:char(36)"`
	ServiceType string `json:"serviceType" gorm:"size:120"`
	FullName    string `json:"fullName" gorm:"size:200;not null"`
	IDCard      string `json:"idCard" gorm:"size:13;not null"` // ตัวเลข 13 หลัก
	Phone       string `json:"phone" gorm:"size:40"`
	Facebook    string `json:"facebook" gorm:"size:200"`
	LineID      string `json:"lineId" gorm:"column:line_id;size:120"`
	Email       string `json:"email" gorm:"size:200"`
	// nil = ยังไม่ได้เลือกวันนัด
	AppointmentDate *time.Time `json:"appointmentDate"`
	Status          Status     `json:"status" gorm:"size:20;not null;index"`
	// เวลาที่ระบบรับคำร้อง ใช้เรียงลำดับล่าสุดก่อน
	Timestamp time.Time `json:"timestamp" gorm:"index;not null"`
}

func (Request) TableName() string { return "military_requests" }

func (r Request) IsAccepted() bool { return r.Status == StatusAccepted }
