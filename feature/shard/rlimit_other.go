//go:build !unix

package shard

func openFileLimit() (uint64, bool) {
	return 0, false
}
