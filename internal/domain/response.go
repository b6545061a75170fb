package domain

// ExtractResponse is the JSON shape returned for an extraction batch by the
// HTTP API and by `docrag extract`.
type ExtractResponse struct {
	Results  map[string][]string `json:"results"`
	Errors   map[string]bool     `json:"errors"`
	Rejected map[string]string   `json:"rejected"`
}

// Response flattens the set; Errors marks documents with any error chunk.
func (s *ChunkSet) Response() ExtractResponse {
	resp := ExtractResponse{
		Results:  s.Texts(),
		Errors:   make(map[string]bool),
		Rejected: make(map[string]string, len(s.Rejected)),
	}
	for name, chunks := range s.Documents {
		for _, c := range chunks {
			if c.IsError {
				resp.Errors[name] = true
				break
			}
		}
	}
	for name, reason := range s.Rejected {
		resp.Rejected[name] = reason
	}
	return resp
}
