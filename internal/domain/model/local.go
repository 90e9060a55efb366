package model

// LocalFileKind distinguishes artifacts in local storage.
type LocalFileKind int

const (
	LocalDataCSV LocalFileKind = iota
	LocalIcon
)

func (k LocalFileKind) String() string {
	if k == LocalIcon {
		return "icon"
	}
	return "data"
}

// LocalFile is a named artifact written by a fetch and read by ingestion or the UI.
type LocalFile struct {
	Name string
	Kind LocalFileKind
	Size int64
	Hash uint64 // xxhash of contents, 0 when not computed
}
