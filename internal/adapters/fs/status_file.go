package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// StatusFileName is the name of the session status file in the state directory.
const StatusFileName = "status.json"

// StatusFileRepository implements ports.SessionRepository using a JSON file.
type StatusFileRepository struct {
	dir string
}

// NewStatusFileRepository creates a repository writing into dir.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load reads the last saved session.
// Returns an empty session and nil error if no status file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (domain.Session, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Session{}, nil
		}
		return domain.Session{}, err
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// Save writes the session to a temp file and renames it into place, so
// readers never observe a partial file.
func (r *StatusFileRepository) Save(ctx context.Context, s domain.Session) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, StatusFileName)
}
