// Package layout renders ranked standings, certificates and link previews into
// the chat platform's block grammar. Every function returns a fresh block
// sequence built only from the slack block constructors, so each emitted block
// is one of the platform's typed variants.
package layout
