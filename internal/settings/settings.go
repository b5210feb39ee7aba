package settings

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

const DefaultLogLevel = "Information"

var validLogLevels = []string{"Debug", "Information", "Warning", "Error"}

// Server holds the per-server settings an editor passes through for one
// language server or debug adapter.
type Server struct {
	BinaryPath  string
	Arguments   []string
	BroadSearch bool
	LogLevel    string
	// Workspace is raw JSON merged over the default workspace configuration.
	Workspace string
}

func Default() Server {
	return Server{LogLevel: DefaultLogLevel}
}

// Parse reads the editor settings document:
//
//	{"binary": {"path": "...", "arguments": [...]},
//	 "settings": {"broad_search": true, "log_level": "Debug"},
//	 "workspace_configuration": {...}}
//
// Missing keys keep their defaults.
func Parse(data []byte) (Server, error) {
	s := Default()
	if len(data) == 0 {
		return s, nil
	}
	if !gjson.ValidBytes(data) {
		return s, errors.New("settings: invalid JSON")
	}

	doc := gjson.ParseBytes(data)

	s.BinaryPath = doc.Get("binary.path").String()
	for _, arg := range doc.Get("binary.arguments").Array() {
		s.Arguments = append(s.Arguments, arg.String())
	}
	if v := doc.Get("settings.broad_search"); v.IsBool() {
		s.BroadSearch = v.Bool()
	}
	if v := doc.Get("settings.log_level"); v.Type == gjson.String {
		s.LogLevel = v.String()
	}
	if v := doc.Get("workspace_configuration"); v.IsObject() {
		s.Workspace = v.Raw
	}

	return s, s.Validate()
}

func Load(path string) (Server, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("reading settings: %w", err)
	}
	return Parse(data)
}

func (s Server) Validate() error {
	for _, lvl := range validLogLevels {
		if s.LogLevel == lvl {
			return nil
		}
	}
	return fmt.Errorf("invalid log_level '%s'. Expected one of: Debug, Information, Warning, Error", s.LogLevel)
}
