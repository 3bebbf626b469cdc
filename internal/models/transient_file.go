package models

import "time"

// Transient file kinds. Each kind maps to a filename prefix so that leftover
// files on disk can be attributed to the request phase that created them.
const (
	TransientUpload   = "upload"
	TransientWaveform = "converted"
	TransientResponse = "response"
	TransientScan     = "scan"
)

// TransientFile is a registry row for a request-scoped file. Files are removed
// by the owning request on completion; the registry row with its expiry acts
// as a backstop for artifacts that outlive the request (the response audio).
type TransientFile struct {
	ID         int64     `json:"id"`
	Token      string    `json:"token"`
	Kind       string    `json:"kind"`
	StoredPath string    `json:"stored_path"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
