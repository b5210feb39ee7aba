package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/logx"
	"github.com/teamcutter/csharpls/internal/resolver"
	"github.com/teamcutter/csharpls/internal/server"
	"github.com/teamcutter/csharpls/internal/settings"
)

// razorTool is implemented by tools that also ship the Razor server.
type razorTool interface {
	RazorPath(versionDir string) string
}

type located struct {
	binary     string
	versionDir string
}

// Manager answers editor requests for launch commands. It owns one
// resolver per tool and remembers the binaries it has handed out.
type Manager struct {
	mu       sync.Mutex
	csharp   *resolver.Resolver
	debugger *resolver.Resolver
	log      domain.Logger

	roslyn located
	razor  located
	dbg    located
}

func New(csharp, debugger *resolver.Resolver, log domain.Logger) *Manager {
	if log == nil {
		log = logx.Nop()
	}
	return &Manager{
		csharp:   csharp,
		debugger: debugger,
		log:      log,
	}
}

// LanguageServerCommand returns the launch command for serverID. Ids
// containing "rzls" get the Razor server; anything else gets Roslyn, with
// Razor support switched on when the worktree root holds Razor files.
func (m *Manager) LanguageServerCommand(ctx context.Context, serverID, worktree string, s settings.Server, sink domain.StatusSink) (*domain.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Debug("manager: language server requested", "server", serverID, "worktree", worktree)

	if server.IsRazor(serverID) {
		loc, err := m.razorPath(ctx, s.BinaryPath, sink)
		if err != nil {
			return nil, err
		}
		return &domain.Command{Path: loc.binary, Args: s.Arguments, Cwd: worktree}, nil
	}

	loc, err := m.roslynPath(ctx, s.BinaryPath, sink)
	if err != nil {
		return nil, err
	}

	razor := server.HasRazorFiles(worktree)
	m.log.Debug("manager: workspace razor detection", "worktree", worktree, "razor", razor)

	cmd := server.RoslynCommand(server.RoslynOptions{
		Binary:     loc.binary,
		VersionDir: loc.versionDir,
		LogLevel:   s.LogLevel,
		ExtraArgs:  s.Arguments,
		Razor:      razor,
		Log:        m.log,
	})
	cmd.Cwd = worktree
	return &cmd, nil
}

// DebugAdapterBinary returns the netcoredbg launch for adapter. A
// userPath is used as given.
func (m *Manager) DebugAdapterBinary(ctx context.Context, adapter, configuration, userPath, cwd string, sink domain.StatusSink) (*domain.DebugAdapterBinary, error) {
	if !server.SupportsAdapter(adapter) {
		m.log.Error("manager: unsupported adapter", "adapter", adapter)
		return server.DebugAdapter(adapter, configuration, "", cwd)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path, err := m.debuggerPath(ctx, userPath, sink)
	if err != nil {
		m.log.Error("manager: failed to locate debugger", "error", err)
		return nil, fmt.Errorf("failed to locate C# debugger: %w", err)
	}
	m.log.Debug("manager: using debugger", "path", path)

	return server.DebugAdapter(adapter, configuration, path, cwd)
}

// RoslynPath resolves the Roslyn server binary, installing it if needed.
func (m *Manager) RoslynPath(ctx context.Context, userPath string, sink domain.StatusSink) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loc, err := m.roslynPath(ctx, userPath, sink)
	return loc.binary, err
}

func (m *Manager) roslynPath(ctx context.Context, userPath string, sink domain.StatusSink) (located, error) {
	if userPath != "" {
		return m.userDefined(userPath)
	}
	if isFile(m.roslyn.binary) {
		m.log.Debug("manager: using cached roslyn path", "path", m.roslyn.binary)
		return m.roslyn, nil
	}

	loc, err := m.locate(ctx, m.csharp, m.csharp.Tool().BinaryPath, "Roslyn language server", sink)
	if err != nil {
		return located{}, err
	}
	m.roslyn = loc
	return loc, nil
}

func (m *Manager) razorPath(ctx context.Context, userPath string, sink domain.StatusSink) (located, error) {
	if userPath != "" {
		return m.userDefined(userPath)
	}
	if isFile(m.razor.binary) {
		m.log.Debug("manager: using cached razor path", "path", m.razor.binary)
		return m.razor, nil
	}

	rt, ok := m.csharp.Tool().(razorTool)
	if !ok {
		return located{}, fmt.Errorf("%s does not ship a Razor language server", m.csharp.Tool().Name())
	}

	loc, err := m.locate(ctx, m.csharp, rt.RazorPath, "Razor language server", sink)
	if err != nil {
		return located{}, err
	}
	m.razor = loc
	return loc, nil
}

func (m *Manager) debuggerPath(ctx context.Context, userPath string, sink domain.StatusSink) (string, error) {
	if userPath != "" {
		m.log.Debug("manager: using user-provided debugger", "path", userPath)
		return userPath, nil
	}
	if isFile(m.dbg.binary) {
		m.log.Debug("manager: using cached debugger path", "path", m.dbg.binary)
		return m.dbg.binary, nil
	}

	loc, err := m.locate(ctx, m.debugger, m.debugger.Tool().BinaryPath, "csharp debug server", sink)
	if err != nil {
		return "", err
	}
	m.dbg = loc
	return loc.binary, nil
}

// locate resolves the tool's version directory and checks that the
// binary exists there.
func (m *Manager) locate(ctx context.Context, r *resolver.Resolver, binary func(string) string, what string, sink domain.StatusSink) (located, error) {
	versionDir, err := r.Resolve(ctx, sink)
	if err != nil {
		return located{}, err
	}

	path := binary(versionDir)
	if !isFile(path) {
		return located{}, fmt.Errorf("%s not found at: %s", what, path)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, 0755); err != nil {
			m.log.Warn("manager: failed to mark binary executable", "path", path, "error", err)
		}
	}

	m.log.Debug("manager: located binary", "what", what, "path", path)
	return located{binary: path, versionDir: versionDir}, nil
}

// userDefined short-circuits resolution for a binary configured by the
// user. Its directory stands in for the version directory.
func (m *Manager) userDefined(path string) (located, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return located{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	m.log.Debug("manager: using user-defined path", "path", abs)
	return located{binary: abs, versionDir: filepath.Dir(abs)}, nil
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
