package models

import "time"

// AdminAccount คือบัญชีที่ identity provider ใช้ตรวจรหัสผ่าน
// (มีได้หลายบัญชี แต่เข้าแผงควบคุมได้เฉพาะอีเมลที่กำหนดใน config)
type AdminAccount struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:200;not null"`
	PasswordHash string    `json:"-" gorm:"not null"` // bcrypt hash
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
