package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// UploadRoot is the first segment of every generated storage path.
const UploadRoot = "uploads"

const maxSafeNameBytes = 200

// Name is a generated storage location for one upload.
type Name struct {
	Dir      string // uploads/{owner}/{yyyy}/{MM}
	SafeName string
	FileName string // {token}-{SafeName}
}

// Path joins Dir and FileName with forward slashes.
func (n Name) Path() string {
	return path.Join(n.Dir, n.FileName)
}

// Namer derives storage names. Clock and token source are swappable for tests.
type Namer struct {
	Now   func() time.Time
	Token func() string
}

// NewNamer returns a Namer backed by the wall clock and random UUIDs.
func NewNamer() Namer {
	return Namer{Now: time.Now, Token: randomToken}
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Generate builds a collision-resistant name for filename owned by ownerID.
func (n Namer) Generate(ownerID, filename string) (Name, error) {
	dir, err := n.Dir(ownerID)
	if err != nil {
		return Name{}, err
	}
	safe := SafeFileName(filename)
	token := n.Token
	if token == nil {
		token = randomToken
	}
	return Name{
		Dir:      dir,
		SafeName: safe,
		FileName: token() + "-" + safe,
	}, nil
}

// Dir returns uploads/{ownerID}/{yyyy}/{MM} for the current UTC month.
func (n Namer) Dir(ownerID string) (string, error) {
	if !validOwnerSegment(ownerID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidOwner, ownerID)
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	t := now().UTC()
	return path.Join(UploadRoot, ownerID, t.Format("2006"), t.Format("01")), nil
}

func validOwnerSegment(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		if isInvalidNameRune(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// SafeFileName replaces characters that are invalid in file names with '_',
// collapses whitespace runs to a single '_' and keeps the extension.
func SafeFileName(name string) string {
	replaced := strings.Map(func(r rune) rune {
		if isInvalidNameRune(r) {
			return '_'
		}
		return r
	}, name)

	ext := path.Ext(replaced)
	base := strings.TrimSuffix(replaced, ext)
	base = strings.Join(strings.Fields(base), "_")
	ext = strings.Join(strings.Fields(ext), "_")
	if base == "" {
		base = "file"
	}
	if limit := maxSafeNameBytes - len(ext); len(base) > limit && limit > 0 {
		base = truncateUTF8(base, limit)
	}
	return strings.TrimSpace(base + ext)
}

func isInvalidNameRune(r rune) bool {
	switch r {
	case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
		return true
	}
	return r < 0x20 || r == 0x7f || r == utf8.RuneError
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
