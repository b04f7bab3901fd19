package domain

import "time"

// WakeSignal is a background wake-up delivered to the notification hook.
type WakeSignal struct {
	At     time.Time
	Source string
}

// Notification is a local notification request handed to the host platform.
type Notification struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}
