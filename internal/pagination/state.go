package pagination

import "github.com/tombee/apirun/internal/request"

// State is the addressing and anomaly-tracking state of one run. It is
// created by Engine.Run and never shared.
type State struct {
	Page      int
	Offset    int
	Cursor    string
	PageSize  int
	HasMore   bool
	Iteration int

	// TotalFetched sums the record counts of all pages seen so far.
	TotalFetched int

	// FirstFingerprint and PrevFingerprint identify raw responses.
	FirstFingerprint string
	PrevFingerprint  string

	// FirstHadData is set when the first response carried records.
	FirstHadData bool
}

func newState(cfg *Config) *State {
	return &State{
		Page:     1,
		PageSize: cfg.EffectivePageSize(),
		HasMore:  true,
	}
}

// vars returns the addressing values exposed to request scripts.
func (s *State) vars() *request.PaginationVars {
	return &request.PaginationVars{
		Page:     s.Page,
		Offset:   s.Offset,
		Cursor:   s.Cursor,
		PageSize: s.PageSize,
	}
}

// pageInfo is the second argument of handler and stop-condition scripts.
func (s *State) pageInfo() map[string]any {
	var cursor any
	if s.Cursor != "" {
		cursor = s.Cursor
	}
	return map[string]any{
		"page":         s.Page,
		"offset":       s.Offset,
		"cursor":       cursor,
		"pageSize":     s.PageSize,
		"totalFetched": s.TotalFetched,
		"iteration":    s.Iteration,
	}
}

// advance moves addressing to the next page.
func (s *State) advance(t Type) {
	switch t {
	case TypePageBased:
		s.Page++
	case TypeOffsetBased:
		s.Offset += s.PageSize
	case TypeCursorBased:
		if s.Cursor == "" {
			s.HasMore = false
		}
	}
}
