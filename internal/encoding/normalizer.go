// Package encoding converts the Receita Federal extracts from their legacy
// ISO-8859-1 encoding to UTF-8. Files can be tens of gigabytes, so the
// conversion streams through a bounded buffer and never holds the file in
// memory.
package encoding

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DefaultBufferBytes is the read/write buffer used when the caller passes a
// non-positive size.
const DefaultBufferBytes = 4 * 1024 * 1024

// Normalize converts srcPath from ISO-8859-1 to a UTF-8 temp file and
// returns the temp file path together with a cleanup function that removes
// it. The caller must invoke cleanup on every exit path once the file is no
// longer needed. On failure the partial output is removed before the error
// is returned and the cleanup function is nil.
func Normalize(srcPath string, bufferBytes int) (string, func(), error) {
	if bufferBytes <= 0 {
		bufferBytes = DefaultBufferBytes
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer in.Close()

	out, err := os.CreateTemp("", "cnpj-*.utf8.csv")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file for %s: %w", srcPath, err)
	}
	outPath := out.Name()

	fail := func(err error) (string, func(), error) {
		out.Close()
		if rmErr := os.Remove(outPath); rmErr != nil {
			log.Printf("WARN: could not remove partial temp file %s: %v", outPath, rmErr)
		}
		return "", nil, err
	}

	decoder := transform.NewReader(bufio.NewReaderSize(in, bufferBytes), charmap.ISO8859_1.NewDecoder())
	writer := bufio.NewWriterSize(out, bufferBytes)

	buf := make([]byte, bufferBytes)
	for {
		n, readErr := decoder.Read(buf)
		if n > 0 {
			if _, writeErr := writer.Write(buf[:n]); writeErr != nil {
				return fail(fmt.Errorf("failed to write converted output for %s: %w", srcPath, writeErr))
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return fail(fmt.Errorf("failed to read %s: %w", srcPath, readErr))
		}
	}

	if err := writer.Flush(); err != nil {
		return fail(fmt.Errorf("failed to flush converted output for %s: %w", srcPath, err))
	}
	if err := out.Close(); err != nil {
		if rmErr := os.Remove(outPath); rmErr != nil {
			log.Printf("WARN: could not remove partial temp file %s: %v", outPath, rmErr)
		}
		return "", nil, fmt.Errorf("failed to close converted output for %s: %w", srcPath, err)
	}

	cleanup := func() {
		if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
			log.Printf("WARN: could not delete temp file %s: %v", outPath, err)
		}
	}
	return outPath, cleanup, nil
}
