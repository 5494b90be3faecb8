// Package site renders the static gallery: one page per updated creator
// under the user dir, an index page listing them, and the shared script
// and stylesheets.
//
// Platform images cannot be hotlinked, so the builder mirrors each
// creator's avatar and recent thumbnails next to the page.
package site
