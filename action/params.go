package action

// Params holds the parameters of one invocation after extraction, keyed by
// name. All values are strings; handlers parse stronger types themselves.
type Params map[string]string

// Extract collects parameters from all three places an agent may put them.
// Later sources win: the query string is read first, request body properties
// override it, and the top-level parameters array overrides both. The query
// string never silently clobbers a value the agent supplied explicitly.
//
// Elements without a name, and elements whose value key is absent entirely,
// are skipped. Extraction never fails; a malformed event yields an empty
// map.
func Extract(ev Event) Params {
	params := make(Params)

	for name, value := range ev.QueryStringParameters {
		if name == "" {
			continue
		}

		params[name] = value
	}

	if ev.RequestBody != nil {
		content, ok := ev.RequestBody.Content["application/json"]
		if ok {
			extractInto(params, content.Properties)
		}
	}

	extractInto(params, ev.Parameters)

	return params
}

func extractInto(params Params, props []Parameter) {
	for _, prop := range props {
		if prop.Name == "" || prop.Value == nil {
			continue
		}

		params[prop.Name] = prop.Value.String()
	}
}

// Get returns the named parameter, or the empty string when absent.
func (p Params) Get(name string) string {
	return p[name]
}

// GetDefault returns the named parameter, or def when absent or blank.
func (p Params) GetDefault(name, def string) string {
	if v, ok := p[name]; ok && v != "" {
		return v
	}

	return def
}

// Has reports whether the named parameter was supplied, even if blank.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}
