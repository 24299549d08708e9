//go:build !production

package lifecycle

const Release = false
