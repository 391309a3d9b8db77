package model

// BookSlotRequest lets a recruiter confirm the interview slot a candidate
// named during screening (or override it manually).
type BookSlotRequest struct {
	AppID int64  `json:"app_id" binding:"required"`
	Slot  string `json:"slot" binding:"required"`
}
