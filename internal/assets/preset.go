package assets

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Preset describes one family of downloadable assets.
type Preset struct {
	// Name identifies the preset on the command line.
	Name string

	// Dir is the download directory, relative to the output root.
	Dir string

	// DefaultName is used when a URL has no usable basename.
	DefaultName string

	// DefaultExt is appended to basenames without an extension.
	DefaultExt string

	// Pattern matches plain URLs in document text.
	Pattern *regexp.Regexp

	// EscapedPattern matches URLs written with JSON-escaped slashes.
	EscapedPattern *regexp.Regexp

	// Prefix keeps only URLs starting with it. Empty keeps all.
	Prefix string

	// DedupeNames gives URLs sharing a basename distinct file names.
	DedupeNames bool

	// UserAgent is sent with every download.
	UserAgent string
}

var (
	// Picofile downloads Picofile uploads into out/picofile.
	Picofile = Preset{
		Name:           "picofile",
		Dir:            "picofile",
		DefaultName:    "picofile_asset",
		DefaultExt:     ".bin",
		Pattern:        regexp.MustCompile(`(?i)https?://(?:[A-Za-z0-9-]+\.)*picofile\.com/[^\s"'<>\\)]+`),
		EscapedPattern: regexp.MustCompile(`(?i)https?:\\/\\/(?:[A-Za-z0-9-]+\.)*picofile\.com\\/(?:\\/|[^\s"'<>\\)])+`),
		UserAgent:      "Mozilla/5.0 (compatible; picofile-downloader/1.0)",
	}

	// Smileys downloads Blogsky smiley images into out/smileys.
	Smileys = Preset{
		Name:           "smileys",
		Dir:            "smileys",
		DefaultName:    "smiley",
		DefaultExt:     ".img",
		Pattern:        regexp.MustCompile(`http://www\.blogsky\.com/images/smileys/[^\s"'<>\\)]+`),
		EscapedPattern: regexp.MustCompile(`http:\\/\\/www\.blogsky\.com\\/images\\/smileys\\/(?:\\/|[^\s"'<>\\)])+`),
		Prefix:         "http://www.blogsky.com/images/smileys/",
		DedupeNames:    true,
		UserAgent:      "Mozilla/5.0 (compatible; smiley-downloader/1.0)",
	}
)

// Presets returns every built-in preset.
func Presets() []Preset {
	return []Preset{Picofile, Smileys}
}

// PresetNames returns the names of the built-in presets.
func PresetNames() []string {
	names := make([]string, 0, 2)
	for _, p := range Presets() {
		names = append(names, p.Name)
	}
	return names
}

// PresetByName looks up a built-in preset.
func PresetByName(name string) (Preset, error) {
	idx := slices.IndexFunc(Presets(), func(p Preset) bool {
		return strings.EqualFold(p.Name, name)
	})
	if idx < 0 {
		return Preset{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(PresetNames(), ", "))
	}
	return Presets()[idx], nil
}

// ExtractURLs returns the distinct asset URLs found in text.
func (p Preset) ExtractURLs(text string) map[string]struct{} {
	found := make(map[string]struct{})
	for _, u := range p.Pattern.FindAllString(text, -1) {
		found[u] = struct{}{}
	}
	if p.EscapedPattern != nil {
		for _, u := range p.EscapedPattern.FindAllString(text, -1) {
			found[strings.ReplaceAll(u, `\/`, "/")] = struct{}{}
		}
	}
	return found
}
