package main

import "google.golang.org/genai"

// Grounding metadata carries citations in more than one shape. They are lifted
// into the citation union by citationFromChunk and flattened into Sources by
// normalizeSources, which is the only place the shapes are told apart.

const mapsFallbackTitle = "Google Maps Location"

type citation interface {
	isCitation()
}

// webCitation is a generic web reference; both fields are required.
type webCitation struct {
	URI   string
	Title string
}

// mapsCitation is a Google Maps place reference; the title is optional.
type mapsCitation struct {
	URI   string
	Title string
}

func (webCitation) isCitation()  {}
func (mapsCitation) isCitation() {}

// citationFromChunk maps one grounding chunk onto the union. Chunks of any
// other shape (retrieved context, empty entries) report ok=false.
func citationFromChunk(chunk *genai.GroundingChunk) (citation, bool) {
	switch {
	case chunk == nil:
		return nil, false
	case chunk.Web != nil:
		return webCitation{URI: chunk.Web.URI, Title: chunk.Web.Title}, true
	case chunk.Maps != nil:
		return mapsCitation{URI: chunk.Maps.URI, Title: chunk.Maps.Title}, true
	}
	return nil, false
}

// toSource is the single mapping from a citation to a Source.
func toSource(c citation) (Source, bool) {
	switch c := c.(type) {
	case webCitation:
		if c.URI == "" || c.Title == "" {
			return Source{}, false
		}
		return Source{Title: c.Title, URI: c.URI}, true
	case mapsCitation:
		if c.URI == "" {
			return Source{}, false
		}
		title := c.Title
		if title == "" {
			title = mapsFallbackTitle
		}
		return Source{Title: title, URI: c.URI}, true
	}
	return Source{}, false
}

// normalizeSources converts citations in discovery order, dropping unusable
// entries and any later entry whose URI was already seen.
func normalizeSources(citations []citation) []Source {
	sources := make([]Source, 0, len(citations))
	seen := make(map[string]struct{}, len(citations))
	for _, c := range citations {
		src, ok := toSource(c)
		if !ok {
			continue
		}
		if _, dup := seen[src.URI]; dup {
			continue
		}
		seen[src.URI] = struct{}{}
		sources = append(sources, src)
	}
	return sources
}

// sourcesFromMetadata extracts the deduplicated source list. A nil metadata
// block yields an empty, non-nil slice.
func sourcesFromMetadata(md *genai.GroundingMetadata) []Source {
	if md == nil {
		return []Source{}
	}
	citations := make([]citation, 0, len(md.GroundingChunks))
	for _, chunk := range md.GroundingChunks {
		if c, ok := citationFromChunk(chunk); ok {
			citations = append(citations, c)
		}
	}
	return normalizeSources(citations)
}
