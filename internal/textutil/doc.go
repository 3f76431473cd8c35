// Package textutil cleans user-supplied names for filesystem and HTTP use and
// renders status labels for terminal output.
package textutil
