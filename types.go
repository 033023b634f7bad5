package main

// Entry is one gallery listing discovered on a search page.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Cover string `json:"cover"`
}

// Snapshot is the last recorded extraction for one subject.
type Snapshot struct {
	Checksum string  `json:"checksum"`
	Items    []Entry `json:"items"`
}

// State is the persisted document covering every watched subject.
type State struct {
	Authors map[string]Snapshot `json:"authors"`
	Single  *Snapshot           `json:"single,omitempty"`
}

// Selectors describes how entries are located within a listing page.
type Selectors struct {
	Result string
	Title  string
	Link   string
}
