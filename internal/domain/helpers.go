package domain

import "strings"

// VersionDirName is the on-disk name of one installed version.
func VersionDirName(prefix, version string) string {
	return prefix + "-" + version
}

// TrimTag strips an optional leading "v" from a release tag.
func TrimTag(tag string) string {
	return strings.TrimPrefix(tag, "v")
}
