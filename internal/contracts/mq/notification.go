package mq

// NotificationRequestPayload asks the push relay to fan a message out to all
// registered subscriptions.
type NotificationRequestPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
