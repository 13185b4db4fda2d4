package planstore

import "strings"

// EncodePath turns a project path into a filesystem-safe directory
// component. Per spec §6: strip a leading "/", then replace every "/"
// and ":" with "_". This is a one-way encoding; it is never decoded
// back to the original path.
func EncodePath(projectPath string) string {
	trimmed := strings.TrimPrefix(projectPath, "/")

	replacer := strings.NewReplacer("/", "_", ":", "_")
	return replacer.Replace(trimmed)
}
