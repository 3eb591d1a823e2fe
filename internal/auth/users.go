package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/procuretrust/tender-gateway/internal/model"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type userRecord struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Directory holds the static user list loaded once at startup.
type Directory struct {
	users map[string]userRecord
}

// LoadDirectory reads a JSON array of {username, password, role}. A missing
// file yields an empty directory; a malformed one is a startup error.
func LoadDirectory(path string) (*Directory, error) {
	dir := &Directory{users: map[string]userRecord{}}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dir, nil
		}
		return nil, fmt.Errorf("read users file: %w", err)
	}

	var records []userRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	for _, rec := range records {
		if _, ok := model.ParseRole(rec.Role); !ok {
			return nil, fmt.Errorf("user %q has unknown role %q", rec.Username, rec.Role)
		}
		dir.users[rec.Username] = rec
	}
	return dir, nil
}

func (d *Directory) Authenticate(username, password string) (model.Principal, error) {
	rec, ok := d.users[username]
	if !ok || rec.Password != password {
		return model.Principal{}, ErrInvalidCredentials
	}
	role, _ := model.ParseRole(rec.Role)
	return model.Principal{Username: username, Role: role}, nil
}
