package config

import (
	"os"
	"path/filepath"
)

const (
	StorageDriverFile   = "file"
	StorageDriverSQLite = "sqlite"
)

type StorageConfig interface {
	GetStorageDriver() string
	GetCredentialPath() string
}

type Storage struct {
	file *File
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageDriver() string {
	return GetEnv("STORAGE_DRIVER", orDefault(s.file.Storage.Driver, StorageDriverFile))
}

// GetCredentialPath defaults to a per-user state file next to the config file.
func (s Storage) GetCredentialPath() string {
	if p := GetEnv("STORAGE_PATH", s.file.Storage.Path); p != "" {
		return p
	}
	name := "credential.json"
	if s.GetStorageDriver() == StorageDriverSQLite {
		name = "credential.db"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, configDir, name)
}
