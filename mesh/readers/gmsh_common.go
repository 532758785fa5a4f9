package readers

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/notargets/airmesh/mesh"
)

var ErrUnsupportedFormat = errors.New("unsupported mesh format")

// ReadMeshFile reads a mesh written by a kernel; only .msh files are understood
func ReadMeshFile(filename string) (*mesh.Mesh, error) {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".msh" {
		return nil, fmt.Errorf("%s: %w: extension %q", filename, ErrUnsupportedFormat, ext)
	}
	return ReadGmshAuto(filename)
}

/*
ReadGmshAuto checks the $MeshFormat version before reading. Only version 4 files carry the
$Entities section with boxes and adjacency, so older versions are refused.
*/
func ReadGmshAuto(filename string) (*mesh.Mesh, error) {
	version, err := formatVersion(filename)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(version, "4.") {
		return nil, fmt.Errorf("%s: %w: MSH version %s", filename, ErrUnsupportedFormat, version)
	}
	return ReadGmsh4(filename)
}

func formatVersion(filename string) (version string, err error) {
	var (
		file *os.File
	)
	if file, err = os.Open(filename); err != nil {
		return
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "$MeshFormat" {
			continue
		}
		if scanner.Scan() {
			if parts := strings.Fields(scanner.Text()); len(parts) > 0 {
				return parts[0], nil
			}
		}
		break
	}
	if err = scanner.Err(); err != nil {
		return
	}
	return "", fmt.Errorf("%s: %w: no $MeshFormat section", filename, ErrUnsupportedFormat)
}
