package walker

// Options controls one walk. It is a value: a walk keeps the copy it started with.
type Options struct {
	// SimpleNamesOnly selects the short-name listing as the primary output.
	// Both listings are always computed.
	SimpleNamesOnly bool `json:"simpleNamesOnly" yaml:"simple_names_only"`
	// IncludeText appends ": <text>" to lines of text-bearing nodes.
	IncludeText bool `json:"includeText" yaml:"include_text"`
	// HideHidden skips invisible nodes together with their whole subtree.
	HideHidden bool `json:"hideHidden" yaml:"hide_hidden"`
}

// DefaultOptions is the initial option cache: every flag on.
func DefaultOptions() Options {
	return Options{
		SimpleNamesOnly: true,
		IncludeText:     true,
		HideHidden:      true,
	}
}

// Patch is a partial update; nil fields keep their current value.
type Patch struct {
	SimpleNamesOnly *bool `json:"simpleNamesOnly,omitempty"`
	IncludeText     *bool `json:"includeText,omitempty"`
	HideHidden      *bool `json:"hideHidden,omitempty"`
}

// Apply returns o with every non-nil field of p written over it.
func (o Options) Apply(p Patch) Options {
	if p.SimpleNamesOnly != nil {
		o.SimpleNamesOnly = *p.SimpleNamesOnly
	}
	if p.IncludeText != nil {
		o.IncludeText = *p.IncludeText
	}
	if p.HideHidden != nil {
		o.HideHidden = *p.HideHidden
	}
	return o
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.SimpleNamesOnly == nil && p.IncludeText == nil && p.HideHidden == nil
}
