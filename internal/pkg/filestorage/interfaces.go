package filestorage

import (
	"mime/multipart"
)

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFile stores the upload under subPath and returns the relative path to keep in the database
	SaveFile(fileHeader *multipart.FileHeader, subPath string) (string, error)

	// DeleteFile removes a previously stored file; missing files are not an error
	DeleteFile(relPath string) error

	// GetFullPath maps a stored relative path to the filesystem
	GetFullPath(relPath string) string

	// URL returns the public address of a stored file
	URL(relPath string) string
}
