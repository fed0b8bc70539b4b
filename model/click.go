package model

import "time"

// Click captures a single redirect of a short URL. Append-only.
type Click struct {
	Hash       string    `json:"hash"`
	IP         string    `json:"ip,omitempty"`
	Browser    string    `json:"browser,omitempty"`
	Platform   string    `json:"platform,omitempty"`
	Country    string    `json:"country,omitempty"`
	AccessedAt time.Time `json:"accessedAt"`
}
