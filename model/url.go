package model

import "time"

// ShortURL is the mapping between a target URL and its short hash.
// Validated/Reachable are owned by the lifecycle resolution step: a record is
// created with Validated=false and flips to Validated=true exactly once, after
// the reachability probe for its target completes.
type ShortURL struct {
	Hash       string    `json:"hash"`
	Target     string    `json:"target"`
	StatusCode int       `json:"statusCode"` // redirect mode, 307 by default
	CreatedAt  time.Time `json:"createdAt"`
	Safe       bool      `json:"safe"`
	Validated  bool      `json:"validated"`
	Reachable  bool      `json:"reachable"`
	Owner      string    `json:"owner,omitempty"`
	Sponsor    string    `json:"sponsor,omitempty"`
	IP         string    `json:"ip,omitempty"`
}

// DefaultRedirectCode is the redirect status used for new short URLs.
const DefaultRedirectCode = 307
