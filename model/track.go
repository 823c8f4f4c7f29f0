package model

import "time"

// Track is a song metadata record.
type Track struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"size:255"`
	Genre       string    `json:"genre" gorm:"size:100"`
	ReleaseYear int       `json:"release_year" gorm:"column:release_year"`
	Artist      string    `json:"artist" gorm:"size:255;index"`
	Album       string    `json:"album" gorm:"size:255"`
	Duration    int       `json:"duration"` // minutes
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName pins the table name.
func (Track) TableName() string {
	return "tracks"
}
