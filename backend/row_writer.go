package backend

// RowWriter is implemented by backends that can take a run of cells in one row.
type RowWriter interface {
	SetRow(y int, startX int, cells []Cell)
}
