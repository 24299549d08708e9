//go:build production

package lifecycle

// Release is true for binaries built with the production tag.
const Release = true
