package server

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Roslyn reads its options from pipe-delimited sections.
const roslynWorkspace = `{
  "csharp|inlay_hints": {
    "dotnet_enable_inlay_hints_for_parameters": true,
    "dotnet_enable_inlay_hints_for_literal_parameters": true,
    "dotnet_enable_inlay_hints_for_indexer_parameters": true,
    "dotnet_enable_inlay_hints_for_object_creation_parameters": true,
    "dotnet_enable_inlay_hints_for_other_parameters": true,
    "dotnet_suppress_inlay_hints_for_parameters_that_differ_only_by_suffix": false,
    "dotnet_suppress_inlay_hints_for_parameters_that_match_method_intent": false,
    "dotnet_suppress_inlay_hints_for_parameters_that_match_argument_name": false,
    "csharp_enable_inlay_hints_for_types": true,
    "csharp_enable_inlay_hints_for_implicit_variable_types": true,
    "csharp_enable_inlay_hints_for_lambda_parameter_types": true,
    "csharp_enable_inlay_hints_for_implicit_object_creation": true
  },
  "csharp|background_analysis": {
    "dotnet_analyzer_diagnostics_scope": "fullSolution",
    "dotnet_compiler_diagnostics_scope": "fullSolution"
  },
  "csharp|code_lens": {
    "dotnet_enable_references_code_lens": true,
    "dotnet_enable_tests_code_lens": true
  },
  "csharp|completion": {
    "dotnet_provide_regex_completions": false,
    "dotnet_show_completion_items_from_unimported_namespaces": true,
    "dotnet_show_name_completion_suggestions": true
  },
  "csharp|symbol_search": {
    "dotnet_search_reference_assemblies": true
  },
  "csharp|formatting": {
    "dotnet_organize_imports_on_format": true
  }
}`

// IsRazor reports whether a language server id names the Razor server.
func IsRazor(serverID string) bool {
	return strings.Contains(serverID, "rzls")
}

// WorkspaceConfiguration returns the workspace configuration for serverID
// with overrides applied. Object sections are merged key by key; any other
// override value replaces the default outright.
func WorkspaceConfiguration(serverID, overrides string) (string, error) {
	doc := roslynWorkspace
	if IsRazor(serverID) {
		doc = `{}`
	}
	if strings.TrimSpace(overrides) == "" {
		return doc, nil
	}

	if !gjson.Valid(overrides) {
		return "", errors.New("workspace configuration overrides are not valid JSON")
	}
	parsed := gjson.Parse(overrides)
	if !parsed.IsObject() {
		return "", errors.New("workspace configuration overrides must be an object")
	}

	var err error
	parsed.ForEach(func(section, value gjson.Result) bool {
		key := escapeKey(section.String())
		if value.IsObject() && gjson.Get(doc, key).IsObject() {
			value.ForEach(func(name, v gjson.Result) bool {
				doc, err = sjson.SetRaw(doc, key+"."+escapeKey(name.String()), v.Raw)
				return err == nil
			})
		} else {
			doc, err = sjson.SetRaw(doc, key, value.Raw)
		}
		return err == nil
	})
	if err != nil {
		return "", err
	}
	return doc, nil
}

// escapeKey quotes the characters gjson and sjson treat as path syntax.
func escapeKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
