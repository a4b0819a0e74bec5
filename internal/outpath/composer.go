// Package outpath builds sanitized output file paths from a source path, a
// resolved preset/tier, and the host's naming preferences. It treats both
// the source filename and the preferences as adversarial input: nothing
// here may place a path outside the intended directory or produce an empty
// or extensionless name.
package outpath

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/config"
)

// forbiddenChars matches characters that are unsafe in a filename across
// the platforms this tool targets.
var forbiddenChars = regexp.MustCompile(`[<>:"|?*\\/]`)

// slugChars matches runs of characters a slug must not contain.
var slugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Build composes the output path for one job. extension is the preset's
// resolved output extension (already preset.OutputExtension ?? container).
func Build(sourcePath, presetID string, tier catalog.Tier, extension string, prefs config.Preferences) string {
	dir := prefs.OutputDirectory
	if dir == "" {
		dir = filepath.Dir(sourcePath)
	}
	dir = sanitizeDir(dir)

	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	stem = sanitizeName(stem)
	if stem == "" {
		stem = sanitizeName(presetID)
	}
	if stem == "" {
		stem = "output"
	}

	sep := prefs.FilenameSeparator
	if sep == "" {
		sep = "_"
	}

	name := stem
	if prefs.IncludePresetInName && presetID != "" {
		name += sep + slugify(presetID)
	}
	if prefs.IncludeTierInName && tier != "" {
		name += sep + slugify(string(tier))
	}

	ext := strings.TrimPrefix(extension, ".")
	if ext == "" {
		ext = "bin"
	}
	name += "." + ext

	return filepath.Join(dir, name)
}

// slugify lowercases s, collapses disallowed characters to a single '-',
// and trims leading/trailing '-'.
func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// sanitizeName strips directory-traversal and unsafe characters from a
// single filename component (no path separators expected or preserved).
func sanitizeName(s string) string {
	s = strings.ReplaceAll(s, "..", "")
	return forbiddenChars.ReplaceAllString(s, "_")
}

// sanitizeDir sanitizes a full directory path component-by-component,
// dropping ".." traversal segments while preserving the platform
// separator between the remaining components.
func sanitizeDir(dir string) string {
	parts := strings.Split(filepath.ToSlash(dir), "/")
	clean := make([]string, 0, len(parts))
	for i, p := range parts {
		if p == ".." {
			continue
		}
		if p == "" && i != 0 {
			continue
		}
		clean = append(clean, p)
	}
	return filepath.FromSlash(strings.Join(clean, "/"))
}
