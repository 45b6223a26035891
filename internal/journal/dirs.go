package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidUserID is returned for user IDs that cannot name a directory.
var ErrInvalidUserID = errors.New("invalid user id")

// Dirs is the on-disk layout for one user.
type Dirs struct {
	UserID         string
	Base           string
	Journals       string
	Uploads        string
	Visualizations string
	Profile        string
}

// Profile is the identity a user signed in with. Tokens are never stored here.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserDirs returns the layout for userID under usersRoot.
func UserDirs(usersRoot, userID string) (Dirs, error) {
	if !ValidUserID(userID) {
		return Dirs{}, fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	base := filepath.Join(usersRoot, userID)
	return Dirs{
		UserID:         userID,
		Base:           base,
		Journals:       filepath.Join(base, "journals"),
		Uploads:        filepath.Join(base, "uploads"),
		Visualizations: filepath.Join(base, "visualizations"),
		Profile:        filepath.Join(base, "profile.json"),
	}, nil
}

// Ensure creates every directory in the layout.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Journals, d.Uploads, d.Visualizations} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// WriteProfile stores p as the user's profile.json.
func (d Dirs) WriteProfile(p Profile) error {
	if err := os.MkdirAll(d.Base, 0755); err != nil {
		return fmt.Errorf("create %s: %w", d.Base, err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := writeAtomic(d.Profile, data); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// ReadProfile loads profile.json. It returns ErrNotFound before the first login.
func (d Dirs) ReadProfile() (Profile, error) {
	var p Profile
	data, err := os.ReadFile(d.Profile)
	if errors.Is(err, os.ErrNotExist) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// ValidUserID reports whether id is safe to use as a single path segment.
func ValidUserID(id string) bool {
	if id == "" || id == "." || id == ".." || len(id) > 128 {
		return false
	}
	if strings.ContainsAny(id, `/\:`) || strings.ContainsRune(id, 0) {
		return false
	}
	return !strings.HasPrefix(id, ".")
}
