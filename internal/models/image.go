package models

import "time"

type Image struct {
	ID        int64
	Name      string
	MimeType  string
	ObjectKey string
	SizeBytes int64
	Checksum  []byte
	CreatedAt time.Time
}
