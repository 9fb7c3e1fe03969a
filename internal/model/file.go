package model

import "time"

// FileRecord is the metadata of one physical blob. A record and its blob are
// created together and the record is never modified afterwards.
type FileRecord struct {
	ID               string    `json:"id"`
	FileName         string    `json:"file_name"`
	FilePath         string    `json:"file_path"`
	SizeKB           int64     `json:"size_kb"`
	UploadedByUserID string    `json:"uploaded_by_user_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserFilePath records that a user registered a storage path.
// (UserID, Path) is unique.
type UserFilePath struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Path      string    `json:"path"`
	Label     *string   `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
