package model

import (
	"fmt"
	"strings"
	"time"
)

// AccessLevel describes who may see a document. It is stored as data only;
// enforcement beyond ownership lives outside this service.
type AccessLevel int

const (
	AccessPrivate AccessLevel = iota
	AccessShared
	AccessPublic
)

var accessLevelNames = map[AccessLevel]string{
	AccessPrivate: "private",
	AccessShared:  "shared",
	AccessPublic:  "public",
}

// String returns the lower-case name of the level.
func (a AccessLevel) String() string {
	if s, ok := accessLevelNames[a]; ok {
		return s
	}
	return fmt.Sprintf("AccessLevel(%d)", int(a))
}

// Valid reports whether a is one of the known levels.
func (a AccessLevel) Valid() bool {
	_, ok := accessLevelNames[a]
	return ok
}

// ParseAccessLevel accepts a level name (case-insensitive) or its numeric form.
// An empty string yields AccessPrivate.
func ParseAccessLevel(s string) (AccessLevel, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return AccessPrivate, nil
	}
	for lvl, name := range accessLevelNames {
		if s == name || s == fmt.Sprint(int(lvl)) {
			return lvl, nil
		}
	}
	return AccessPrivate, fmt.Errorf("%w: unknown access level %q", ErrValidation, s)
}

// MarshalText encodes the level by name so JSON payloads stay readable.
func (a AccessLevel) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: unknown access level %d", ErrValidation, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (a *AccessLevel) UnmarshalText(b []byte) error {
	lvl, err := ParseAccessLevel(string(b))
	if err != nil {
		return err
	}
	*a = lvl
	return nil
}

// Document is a named, owned artifact with an append-only list of versions.
// ID and OwnerID never change after creation.
type Document struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	OwnerID     string            `json:"owner_id"`
	AccessLevel AccessLevel       `json:"access_level"`
	CreatedAt   time.Time         `json:"created_at"`
	Versions    []DocumentVersion `json:"versions"`
}

// LatestVersion returns the highest-numbered version, or nil when there is none.
func (d *Document) LatestVersion() *DocumentVersion {
	var latest *DocumentVersion
	for i := range d.Versions {
		if latest == nil || d.Versions[i].VersionNumber > latest.VersionNumber {
			latest = &d.Versions[i]
		}
	}
	return latest
}

// DocumentVersion is one immutable snapshot of a document, backed by exactly
// one FileRecord. (DocumentID, VersionNumber) is unique.
type DocumentVersion struct {
	ID            string      `json:"id"`
	DocumentID    string      `json:"document_id"`
	VersionNumber int         `json:"version_number"`
	FileRecordID  string      `json:"file_record_id"`
	File          *FileRecord `json:"file,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
