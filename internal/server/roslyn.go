package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/logx"
)

// RoslynOptions describes one Roslyn language server launch.
type RoslynOptions struct {
	Binary     string
	VersionDir string
	LogLevel   string
	// ExtraArgs are appended after the generated arguments.
	ExtraArgs []string
	// Razor enables the Razor source generator when its components are
	// present in the installation.
	Razor bool
	Log   domain.Logger
}

type RazorComponents struct {
	CompilerDLL  string
	TargetsPath  string
	ExtensionDLL string
}

// RoslynCommand builds the launch command for the Roslyn language server.
// The extension log directory is created under the version directory; a
// failure to create it is logged and otherwise ignored.
func RoslynCommand(opts RoslynOptions) domain.Command {
	log := opts.Log
	if log == nil {
		log = logx.Nop()
	}
	level := opts.LogLevel
	if level == "" {
		level = "Information"
	}

	logDir := filepath.Join(opts.VersionDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn("roslyn: failed to create log directory", "dir", logDir, "error", err)
	}

	args := []string{
		"--logLevel", level,
		"--extensionLogDirectory", logDir,
	}

	if opts.Razor {
		if rc, ok := DiscoverRazor(opts.VersionDir, log); ok {
			log.Debug("roslyn: enabling razor support")
			args = append(args,
				"--razorSourceGenerator", rc.CompilerDLL,
				"--razorDesignTimePath", rc.TargetsPath,
				"--extension", rc.ExtensionDLL,
			)
		} else {
			log.Debug("roslyn: razor components not available, using C# only")
		}
	}

	args = append(args, opts.ExtraArgs...)
	log.Debug("roslyn: command built", "binary", opts.Binary, "args", args)

	return domain.Command{Path: opts.Binary, Args: args}
}

// DiscoverRazor looks for the Razor compiler, design-time targets and
// extension assembly. Each is probed under extension/.razor first, then
// directly under extension. ok is false unless all of them exist.
func DiscoverRazor(versionDir string, log domain.Logger) (RazorComponents, bool) {
	if log == nil {
		log = logx.Nop()
	}

	find := func(what string, rel ...string) string {
		for _, base := range []string{filepath.Join(versionDir, "extension", ".razor"), filepath.Join(versionDir, "extension")} {
			p := filepath.Join(append([]string{base}, rel...)...)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				log.Debug("razor: found component", "component", what, "path", p)
				return p
			}
		}
		log.Warn("razor: component not found", "component", what)
		return ""
	}

	rc := RazorComponents{
		CompilerDLL:  find("compiler", "Microsoft.CodeAnalysis.Razor.Compiler.dll"),
		TargetsPath:  find("targets", "Targets", "Microsoft.NET.Sdk.Razor.DesignTime.targets"),
		ExtensionDLL: find("extension", "RazorExtension", "Microsoft.VisualStudioCode.RazorExtension.dll"),
	}
	return rc, rc.CompilerDLL != "" && rc.TargetsPath != "" && rc.ExtensionDLL != ""
}

// HasRazorFiles reports whether root directly contains a .razor or .cshtml
// file. Subdirectories are not searched.
func HasRazorFiles(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".razor", ".cshtml":
			return true
		}
	}
	return false
}
