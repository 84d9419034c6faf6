package models

import "time"

// PublishHistory records one publish attempt for a post, successful or not.
type PublishHistory struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	ProfileID    int64     `db:"profile_id" json:"profile_id"`
	Attempt      int       `db:"attempt" json:"attempt"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
