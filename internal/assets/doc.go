// Package assets downloads files referenced by converted page documents.
//
// A Preset describes one asset family: how its URLs look inside the JSON
// documents, where downloads go, and how names are derived. Two presets
// ship with hostcrawl: picofile for Picofile uploads and smileys for
// Blogsky smiley images. Existing files are never downloaded again.
package assets
