package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/RajkumarR2006/gemarag/store"
)

const (
	maxChunkWords = 200
	minChunkWords = 50
)

func parsePDF(path string) ([]store.Chunk, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	filename := filepath.Base(path)
	trust := trustScore(filename)
	var chunks []store.Chunk

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		for _, window := range chunkText(text) {
			id := chunkID(fmt.Sprintf("%s_%d_%s", filename, i, prefix(window, 50)))
			chunks = append(chunks, newChunk(id, filename, i, window, trust))
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: no text extracted", filename)
	}
	return chunks, nil
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// chunkText splits page text into sentence-aligned windows of at most
// maxChunkWords words. A trailing window shorter than minChunkWords is
// merged into the previous one.
func chunkText(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	words := 0

	for _, s := range sentences {
		n := len(strings.Fields(s))
		if words > 0 && words+n > maxChunkWords {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			words = 0
		}
		current = append(current, s)
		words += n
	}
	if len(current) > 0 {
		last := strings.Join(current, " ")
		if words < minChunkWords && len(chunks) > 0 {
			chunks[len(chunks)-1] += " " + last
		} else {
			chunks = append(chunks, last)
		}
	}
	return chunks
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// Cut after the terminator, before the whitespace.
		s := strings.TrimSpace(text[start : loc[0]+1])
		if s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func prefix(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
