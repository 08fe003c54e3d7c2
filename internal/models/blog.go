package models

import "time"

type Blog struct {
	ID          int64
	AuthorID    int64
	Author      string
	Title       string
	Description string
	ImageID     *int64
	PostTime    time.Time
	Saved       bool
}
