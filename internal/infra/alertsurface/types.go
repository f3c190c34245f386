package alertsurface

import "time"

type AlertRequest struct {
	Tag        string    `json:"tag"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Actions    []string  `json:"actions,omitempty"`
	TargetTime time.Time `json:"target_time"`
}

type AlertResponse struct {
	Name        string `json:"name"`
	DisplayedAt string `json:"displayed_at"`
}
