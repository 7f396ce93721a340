package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/logger"
	"github.com/google/uuid"
)

// CoversDir is the subdirectory that holds book cover images
const CoversDir = "covers"

// MaxImageSize caps uploaded cover images
const MaxImageSize = 5 << 20

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // The root directory where files will be stored
	baseURL  string // Public prefix the router serves basePath under
}

// NewLocalStorage creates a new LocalStorage instance rooted at basePath.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// ValidateImage checks extension and size of an uploaded cover
func ValidateImage(fileHeader *multipart.FileHeader) error {
	if fileHeader == nil {
		return apperrors.NewValidationError("cover", "file is required")
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !imageExtensions[ext] {
		return apperrors.NewValidationError("cover", "unsupported image type "+ext)
	}
	if fileHeader.Size > MaxImageSize {
		return apperrors.NewValidationError("cover", "image exceeds 5MB")
	}
	return nil
}

// SaveFile copies the upload into basePath/subPath under a random name
func (ls *LocalStorage) SaveFile(fileHeader *multipart.FileHeader, subPath string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	dir := filepath.Join(ls.basePath, filepath.Clean("/"+subPath))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	dstPath := filepath.Join(dir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	relPath, err := filepath.Rel(ls.basePath, dstPath)
	if err != nil {
		return "", err
	}
	relPath = filepath.ToSlash(relPath)
	logger.Info().Str("filename", fileHeader.Filename).Str("saved_as", relPath).Msg("File saved successfully")
	return relPath, nil
}

// DeleteFile removes a stored file. Deleting a missing file succeeds.
func (ls *LocalStorage) DeleteFile(relPath string) error {
	if relPath == "" {
		return nil
	}
	physicalPath := ls.GetFullPath(relPath)
	if physicalPath == "" {
		return fmt.Errorf("invalid file path: %s", relPath)
	}

	if err := os.Remove(physicalPath); err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}

// GetFullPath resolves relPath inside basePath; paths escaping it yield ""
func (ls *LocalStorage) GetFullPath(relPath string) string {
	cleaned := filepath.Clean("/" + filepath.FromSlash(relPath))
	if cleaned == string(filepath.Separator) {
		return ""
	}
	return filepath.Join(ls.basePath, cleaned)
}

// URL returns the public address of relPath
func (ls *LocalStorage) URL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return ls.baseURL + "/" + strings.TrimLeft(relPath, "/")
}
