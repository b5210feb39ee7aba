package domain

import "time"

type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

type Release struct {
	Tag        string  `json:"tag_name"`
	Version    string  `json:"-"`
	Prerelease bool    `json:"prerelease"`
	Assets     []Asset `json:"assets"`
}

// AssetNames lists asset names in catalog order.
func (r *Release) AssetNames() []string {
	names := make([]string, 0, len(r.Assets))
	for _, a := range r.Assets {
		names = append(names, a.Name)
	}
	return names
}

type ReleaseOptions struct {
	RequireAssets bool
	Prerelease    bool
}

type InstalledTool struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Path        string    `json:"path"`
	BinaryPath  string    `json:"binary_path"`
	URL         string    `json:"url"`
	InstalledAt time.Time `json:"installed_at"`
}

type Manifest struct {
	Tools map[string]*InstalledTool `json:"tools"`
}

func NewManifest() *Manifest {
	return &Manifest{Tools: make(map[string]*InstalledTool)}
}

// Command is an executable plus arguments handed back to the editor.
type Command struct {
	Path string            `json:"command"`
	Args []string          `json:"args"`
	Env  map[string]string `json:"env,omitempty"`
	Cwd  string            `json:"cwd,omitempty"`
}

type RequestKind string

const (
	RequestLaunch RequestKind = "launch"
	RequestAttach RequestKind = "attach"
)

type DebugAdapterBinary struct {
	Command       Command     `json:"command"`
	Configuration string      `json:"configuration"`
	Request       RequestKind `json:"request"`
}
