package model

import "time"

type User struct {
	ID           int       `json:"id"`
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	ReferrerID   *int      `json:"referrer_id,omitempty"`
	RewardPoints int       `json:"reward_points"`
	CreatedAt    time.Time `json:"created_at"`
}

type Referral struct {
	ID             int       `json:"id"`
	ReferrerID     int       `json:"referrer_id"`
	ReferredUserID int       `json:"referred_user_id"`
	RewardGiven    bool      `json:"reward_given"`
	CreatedAt      time.Time `json:"created_at"`
}
