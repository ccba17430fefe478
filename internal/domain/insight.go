package domain

import "time"

// VideoInsight is the persisted record for an enriched hidden-gem video.
// One record per video_id; re-running a search overwrites every field except
// the identity and the original creation timestamp.
type VideoInsight struct {
	VideoID      string    `gorm:"type:text;primaryKey" json:"video_id"`
	Title        string    `gorm:"type:text;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	ChannelID    string    `gorm:"type:text;index:idx_video_insights_channel" json:"channel_id"`
	ChannelTitle string    `gorm:"type:text" json:"channel_title"`
	Views        int64     `json:"views"`
	Subs         int64     `json:"subs"`
	Score        float64   `gorm:"index:idx_video_insights_score" json:"score"`
	Insight      string    `gorm:"type:text" json:"insight"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for VideoInsight.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (VideoInsight) TableName() string {
	return "video_insights"
}
