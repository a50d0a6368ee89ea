package http

// Exported for tests.
var (
	ReadCapped = readCapped
	DecodeBody = decodeBody
)
