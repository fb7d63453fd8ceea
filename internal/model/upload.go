package model

// Upload is an uploaded multipart part after it has been read off the wire.
// It lives for the duration of one request and is discarded once the
// workspace has materialized it on disk.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
