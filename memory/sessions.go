package memory

import (
	"encoding/json"
	"errors"
	"os"
)

// Exchange is one persisted (query, answer) pair.
type Exchange struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// LoadSessions reads persisted sessions from path. A missing file is not an
// error: it returns an empty map.
func LoadSessions(path string) (map[string][]Exchange, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]Exchange{}, nil
		}
		return nil, err
	}
	sessions := map[string][]Exchange{}
	if err := json.Unmarshal(b, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SaveSessions writes all sessions to path.
func SaveSessions(path string, sessions map[string][]Exchange) error {
	b, err := json.MarshalIndent(sessions, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
