package models

// Service คือรายการติดต่อที่ฟอร์มประชาชนให้เลือก
type Service struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Services เรียงตามลำดับที่แสดงบนฟอร์ม รายการแรกคือค่าเริ่มต้น
var Services = []Service{
	{ID: 1, Name: "ลงทะเบียนทหารกองเกิน"},
	{ID: 2, Name: "ยื่นใบคำร้องทั่วไป"},
	{ID: 3, Name: "ติดต่อขึ้นทะเบียนทหาร"},
	{ID: 4, Name: "ติดต่อขอใบลดสิทธิ์"},
	{ID: 5, Name: "ขอใบผ่อนผันทหาร"},
}

func DefaultService() Service { return Services[0] }
