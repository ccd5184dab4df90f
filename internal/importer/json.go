// ABOUTME: JSON decoding for document collections.
// ABOUTME: Accepts a JSON array or JSON-lines; each document is decoded and validated on its own.
package importer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type validator interface {
	Validate() error
}

// splitDocuments returns the raw documents in data, either array elements or non-blank lines.
// Lines that are not JSON are returned as problems.
func splitDocuments(data []byte) ([]json.RawMessage, []error, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil, 0, nil
	}
	if trimmed[0] == '[' {
		var docs []json.RawMessage
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, nil, 0, fmt.Errorf("decode JSON array: %w", err)
		}
		return docs, nil, len(docs), nil
	}

	var (
		docs     []json.RawMessage
		problems []error
		read     int
	)
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		read++
		if !json.Valid(b) {
			problems = append(problems, fmt.Errorf("line %d: invalid JSON", line))
			continue
		}
		docs = append(docs, append(json.RawMessage(nil), b...))
	}
	if err := sc.Err(); err != nil {
		return nil, nil, 0, fmt.Errorf("scan JSON lines: %w", err)
	}
	return docs, problems, read, nil
}

// readDocs decodes every document into T and validates it.
func readDocs[T any, PT interface {
	*T
	validator
}](r io.Reader) ([]T, []error, int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, 0, err
	}
	raws, problems, read, err := splitDocuments(data)
	if err != nil {
		return nil, nil, 0, err
	}

	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			problems = append(problems, fmt.Errorf("document %d: %w", i+1, err))
			continue
		}
		if err := PT(&doc).Validate(); err != nil {
			problems = append(problems, fmt.Errorf("document %d: %w", i+1, err))
			continue
		}
		out = append(out, doc)
	}
	return out, problems, read, nil
}
