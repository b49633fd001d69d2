package model

import (
	"time"
)

// BaseModel 不带软删除：挑战记录在重置时需要物理删除，否则唯一索引会冲突
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
}
