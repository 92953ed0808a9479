package model

import "time"

// PushSubscription is a browser-issued endpoint+key triple used to address a
// device for Web Push delivery. Created on permission grant, never updated.
type PushSubscription struct {
	ID             int       `json:"id"`
	Endpoint       string    `json:"endpoint"`
	ExpirationTime *int64    `json:"expiration_time"`
	KeysP256DH     string    `json:"keys_p256dh"`
	KeysAuth       string    `json:"keys_auth"`
	CreatedAt      time.Time `json:"created_at"`
}
