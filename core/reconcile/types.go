package reconcile

// EmitFunc receives each identifier produced by a walk, in ascending order.
type EmitFunc func(id uint32) error

// Summary describes one completed walk.
type Summary struct {
	// Seen is the number of identifiers read from the driving stream,
	// duplicates included.
	Seen int64

	// Emitted is the number of identifiers passed to the EmitFunc.
	Emitted int64

	// Max is the largest identifier read from the driving stream.
	Max uint32
}
