// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// MoveFile renames sourcePath to destPath, falling back to copy and delete
// when the two are on different filesystems.
func MoveFile(sourcePath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("could not create destination directory: %w", err)
	}
	if err := os.Rename(sourcePath, destPath); err == nil {
		return nil
	}

	inputFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("could not open source file: %w", err)
	}
	defer inputFile.Close()

	tmp := destPath + ".partial"
	outputFile, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("could not open dest file: %w", err)
	}
	if _, err = io.Copy(outputFile, inputFile); err != nil {
		outputFile.Close()
		os.Remove(tmp)
		return fmt.Errorf("could not copy to dest from source: %w", err)
	}
	if err = outputFile.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err = os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return err
	}
	inputFile.Close()
	return os.Remove(sourcePath)
}

// DetectVideoMIME sniffs the header of path and returns its MIME type.
// Anything that is not a video container is rejected.
func DetectVideoMIME(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("read header of %s: %w", path, err)
	}
	kind, err := filetype.Match(head[:n])
	if err != nil {
		return "", err
	}
	if kind == filetype.Unknown || !strings.HasPrefix(kind.MIME.Value, "video/") {
		return "", fmt.Errorf("%s is not a recognised video file", path)
	}
	return kind.MIME.Value, nil
}
