// Package hostmem reports host-wide memory for the usage statistics.
package hostmem
