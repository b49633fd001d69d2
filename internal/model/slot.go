package model

// Slot 每天的两个提交时段
type Slot string

const (
	SlotMorning Slot = "morning"
	SlotEvening Slot = "evening"
)

// Slots 按时间顺序排列
var Slots = []Slot{SlotMorning, SlotEvening}

func (s Slot) Valid() bool {
	return s == SlotMorning || s == SlotEvening
}

// SlotStatus 时段状态，空字符串表示该时段尚未提交
type SlotStatus string

const (
	SlotAbsent   SlotStatus = ""
	SlotPending  SlotStatus = "pending"
	SlotVerified SlotStatus = "verified"
	SlotRejected SlotStatus = "rejected"
)

// Normalize 未知取值一律视为未提交
func (s SlotStatus) Normalize() SlotStatus {
	switch s {
	case SlotPending, SlotVerified, SlotRejected:
		return s
	default:
		return SlotAbsent
	}
}

func (s SlotStatus) String() string {
	if s == SlotAbsent {
		return "absent"
	}
	return string(s)
}
