// Package packer sorts the two identifier lists and writes their packed
// binary form.
//
// Each list is streamed through a disk-backed external sort, so memory use
// does not depend on list size. The sorted stream is written twice: as the
// packed file (little-endian uint32 words, ascending) and as a canonical
// decimal rewrite of the original text list. Both writes are atomic. An
// unparseable list entry is fatal and reported as ErrCorruptList.
//
// The stage is skipped when both packed files exist.
package packer
