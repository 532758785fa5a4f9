package utils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// ExpandPath resolves a leading ~ and cleans the result
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}

func CopyFile(src, dst string) (err error) {
	var in, out *os.File
	if in, err = os.Open(src); err != nil {
		return
	}
	defer in.Close()
	if out, err = os.Create(dst); err != nil {
		return
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return
}
