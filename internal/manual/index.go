package manual

import (
	"sort"
	"strings"
)

// Index is a keyword-scored chunk index over one uploaded manual. An
// Index is built once per document and never mutated afterwards;
// replacing the current manual means building a new Index and swapping
// the reference.
type Index struct {
	fileName string
	chunks   []Chunk
}

type Chunk struct {
	Text string `json:"text"`
	Page int    `json:"page"`
}

type SearchResult struct {
	Text  string  `json:"text"`
	Page  int     `json:"page"`
	Score float64 `json:"score"`
}

type Status struct {
	FileName    string `json:"file_name"`
	PageCount   int    `json:"page_count"`
	TotalChunks int    `json:"total_chunks"`
}

const (
	chunkSize    = 1200
	chunkOverlap = 150
	pageSize     = 3000
)

// NewIndex chunks the document text and builds the index. Pages are
// approximated by character offset since plain text carries no page
// boundaries.
func NewIndex(fileName, text string) *Index {
	idx := &Index{fileName: fileName}
	runes := []rune(text)
	for start := 0; start < len(runes); start += chunkSize - chunkOverlap {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			idx.chunks = append(idx.chunks, Chunk{
				Text: chunk,
				Page: start/pageSize + 1,
			})
		}
		if end == len(runes) {
			break
		}
	}
	return idx
}

func (idx *Index) Status() Status {
	pages := 0
	if n := len(idx.chunks); n > 0 {
		pages = idx.chunks[n-1].Page
	}
	return Status{
		FileName:    idx.fileName,
		PageCount:   pages,
		TotalChunks: len(idx.chunks),
	}
}

// Search scores chunks by term frequency weighted by query-term
// coverage, with a small bonus when the preceding chunk also mentions
// a term, and returns the topK best matches.
func (idx *Index) Search(query string, topK int) []SearchResult {
	if topK <= 0 {
		topK = 5
	}
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len(t) > 2 {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil
	}

	var scored []SearchResult
	for i, chunk := range idx.chunks {
		text := strings.ToLower(chunk.Text)
		score := 0.0
		found := 0
		for _, term := range terms {
			count := strings.Count(text, term)
			score += float64(count)
			if count > 0 {
				found++
			}
		}
		score *= float64(found) / float64(len(terms))
		if i > 0 {
			prev := strings.ToLower(idx.chunks[i-1].Text)
			for _, term := range terms {
				if strings.Contains(prev, term) {
					score += 0.5
				}
			}
		}
		if score > 0 {
			scored = append(scored, SearchResult{Text: chunk.Text, Page: chunk.Page, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
