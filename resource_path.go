package inspector

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// InlineSourceMarker is the file path recorded for documents that were
// loaded from memory rather than from a file.
const InlineSourceMarker = "data-string"

// ResourcePathEnv holds a colon-separated list of directories searched by
// FindFile.
const ResourcePathEnv = "INSPECTOR_RESOURCE_PATH"

// AsFullPath resolves uri relative to the directory of the document at
// filePath. Absolute paths, uris with a scheme and empty file paths are
// returned unchanged. So is anything declared in an inline document, with a
// warning, since there is no directory to resolve against.
func AsFullPath(uri string, filePath string) string {
	if filePath == "" {
		return uri
	}

	if filePath == InlineSourceMarker {
		pkgLog().Warnf("can't resolve full path for relative path [%s], loaded from an inline source", uri)
		return uri
	}

	if strings.Contains(uri, "://") || filepath.IsAbs(uri) || strings.HasPrefix(uri, "/") {
		return uri
	}

	dir := parentPath(filePath)

	// URI parents always use "/"
	if strings.Contains(dir, "://") {
		return dir + "/" + strings.ReplaceAll(uri, "\\", "/")
	}

	if filepath.Separator == '\\' {
		uri = strings.ReplaceAll(uri, "/", "\\")
	} else {
		uri = strings.ReplaceAll(uri, "\\", "/")
	}
	return filepath.Join(dir, uri)
}

// parentPath strips the last element of a path or URI.
func parentPath(p string) string {
	if strings.Contains(p, "://") {
		idx := strings.LastIndex(p, "/")
		if idx < 0 {
			return p
		}
		return p[:idx]
	}
	return filepath.Dir(p)
}

// ResourcePaths returns the non-empty entries of ResourcePathEnv.
func ResourcePaths() []string {
	var paths []string
	for _, p := range strings.Split(os.Getenv(ResourcePathEnv), ":") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// AddResourcePaths appends paths that are not yet listed in ResourcePathEnv.
func AddResourcePaths(paths []string) error {
	current := ResourcePaths()
	for _, p := range paths {
		if p != "" && !slices.Contains(current, p) {
			current = append(current, p)
		}
	}
	return os.Setenv(ResourcePathEnv, strings.Join(current, ":"))
}

// FindFile returns path if it exists, otherwise the first match of path
// under the resource paths. Returns "" when nothing matches.
func FindFile(path string) string {
	if path == "" {
		return ""
	}
	if exists(path) {
		return path
	}
	if filepath.IsAbs(path) || strings.Contains(path, "://") {
		return ""
	}
	for _, dir := range ResourcePaths() {
		candidate := filepath.Join(dir, path)
		if exists(candidate) {
			return candidate
		}
	}
	return ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
