package models

// Schema is the single row recording the data layout version.
type Schema struct {
	Name     string
	MajorVer int
	MinorVer int
}
