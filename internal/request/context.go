package request

// PaginationVars is the addressing sub-state handed to a request script.
type PaginationVars struct {
	Page     int    `json:"page"`
	Offset   int    `json:"offset"`
	Cursor   string `json:"cursor,omitempty"`
	PageSize int    `json:"pageSize"`
}

// ExecutionContext is the input of one request-building evaluation. It is
// rebuilt for every pagination iteration and never shared between runs.
type ExecutionContext struct {
	// Input is the caller-supplied data.
	Input map[string]any

	// Credentials are secret values. They are never logged unmasked.
	Credentials map[string]any

	// Pagination is nil when pagination is disabled.
	Pagination *PaginationVars
}

// Vars flattens the context into the namespace a script sees.
//
// Input keys come first, credential keys override them, and pagination
// variables (page, offset, cursor, limit, pageSize) override both. The
// groups are also available as input, credentials and pagination.
func (ec *ExecutionContext) Vars() map[string]any {
	vars := make(map[string]any, len(ec.Input)+len(ec.Credentials)+8)
	for k, v := range ec.Input {
		vars[k] = v
	}
	for k, v := range ec.Credentials {
		vars[k] = v
	}
	vars["input"] = nonNil(ec.Input)
	vars["credentials"] = nonNil(ec.Credentials)

	if p := ec.Pagination; p != nil {
		vars["page"] = p.Page
		vars["offset"] = p.Offset
		vars["limit"] = p.PageSize
		vars["pageSize"] = p.PageSize
		if p.Cursor != "" {
			vars["cursor"] = p.Cursor
		} else {
			vars["cursor"] = nil
		}
		vars["pagination"] = map[string]any{
			"page":     p.Page,
			"offset":   p.Offset,
			"cursor":   vars["cursor"],
			"pageSize": p.PageSize,
			"limit":    p.PageSize,
		}
	}
	return vars
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
