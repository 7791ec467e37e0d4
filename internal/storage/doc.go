// Package storage parses hubble rc files into an immutable section store.
//
// Sections may declare a %inherit key listing parent sections. Every
// section's effective attribute view is computed once while parsing: the
// most distant ancestors are laid down first, closer ancestors next and
// the section's own keys last, so the nearest definition of a key wins.
// Among the parents listed in one %inherit, earlier entries take
// precedence over later ones. Cycles and references to unknown sections
// are rejected with ErrConfig before any resolution happens.
//
// Keys written outside of any section, overlaid by the [hubble] section,
// form the defaults applied to every resolution. The [hubble-commands]
// section maps an invocation name to an executable path.
package storage
