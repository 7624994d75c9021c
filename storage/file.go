package storage

import (
	"context"
	"os"
)

type FileInventoryState struct {
	FilePath string
}

func NewFileInventoryState(filePath string) *FileInventoryState {
	return &FileInventoryState{FilePath: filePath}
}

func (s *FileInventoryState) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(s.FilePath)
}

type FileHistoryState struct {
	FilePath string
}

func NewFileHistoryState(filePath string) *FileHistoryState {
	return &FileHistoryState{FilePath: filePath}
}

func (s *FileHistoryState) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(s.FilePath)
}
