package utils

import (
	"io/ioutil"
	"os"
	"path/filepath"
)

func FileExist(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

func CreateDirIfNotExist(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}

	return nil
}

// WriteFileIfNotExist creates filePath (and its directory) with content, an
// existing file is left untouched
func WriteFileIfNotExist(filePath string, content []byte) error {
	if FileExist(filePath) {
		return nil
	}

	if err := CreateDirIfNotExist(filepath.Dir(filePath)); err != nil {
		return err
	}

	return ioutil.WriteFile(filePath, content, 0600)
}
