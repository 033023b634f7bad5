package main

import (
	"fmt"
	"log"
	"strings"
)

// Watcher executes one watch pass: fetch every configured subject, diff
// against the persisted snapshots, and report new entries.
type Watcher struct {
	cfg       *Config
	fetcher   *PageFetcher
	notifier  Notifier
	statePath string

	// queryURL builds the search URL for an author name; replaceable in tests.
	queryURL func(name string) string
}

// NewWatcher creates a watcher wired to the real fetch and notification
// transports.
func NewWatcher(cfg *Config) *Watcher {
	return &Watcher{
		cfg:       cfg,
		fetcher:   NewPageFetcher(),
		notifier:  NewNotifier(cfg.Telegram),
		statePath: cfg.StateFile,
		queryURL:  authorQueryURL,
	}
}

// Run performs one pass. Returns an error only when state cannot be loaded
// or persisted, or when the single-URL fetch fails; notification failures
// are swallowed at the send boundary.
func (w *Watcher) Run() error {
	state, err := loadState(w.statePath)
	if err != nil {
		return err
	}

	authors := trimmedAuthors(w.cfg.Authors)
	singleMode := len(authors) == 0
	initialRun := !singleMode && len(state.Authors) == 0

	addedBySubject := make(map[string][]Entry)
	var subjectOrder []string
	processedExisting := 0

	if singleMode {
		done, err := w.runSingle(state, addedBySubject, &subjectOrder)
		if err != nil || done {
			return err
		}
	} else {
		w.pruneStaleAuthors(state, authors)

		for i, name := range authors {
			log.Printf("[%d/%d] Checking %s", i+1, len(authors), name)
			if w.processAuthor(state, name, addedBySubject, &subjectOrder) {
				processedExisting++
			}
			// Persist per subject so a later failure cannot lose this work.
			if err := saveState(w.statePath, state); err != nil {
				return err
			}
		}

		if initialRun && processedExisting == 0 {
			log.Printf("First run: baseline saved for all authors. No notification.")
			return nil
		}
	}

	w.notify(addedBySubject, subjectOrder)

	return saveState(w.statePath, state)
}

// pruneStaleAuthors drops snapshots of authors no longer configured.
func (w *Watcher) pruneStaleAuthors(state *State, authors []string) {
	configured := make(map[string]struct{}, len(authors))
	for _, a := range authors {
		configured[a] = struct{}{}
	}
	for name := range state.Authors {
		if _, ok := configured[name]; !ok {
			log.Printf("Pruning stale author %q from state", name)
			delete(state.Authors, name)
		}
	}
}

// processAuthor fetches and diffs one author, overwriting the snapshot.
// Reports whether a prior snapshot existed. A fetch failure skips the
// subject and keeps its previous snapshot.
func (w *Watcher) processAuthor(state *State, name string, addedBySubject map[string][]Entry, subjectOrder *[]string) bool {
	_, hadPrev := state.Authors[name]

	markup, err := w.fetcher.Fetch(w.queryURL(name))
	if err != nil {
		log.Printf("✗ Fetch failed for %s: %v", name, err)
		return hadPrev
	}

	items := extractEntries(markup, w.cfg.Selectors())
	snapshot := Snapshot{Checksum: pageChecksum(markup), Items: items}

	prev, ok := state.Authors[name]
	state.Authors[name] = snapshot
	if !ok {
		log.Printf("✓ %s: baseline saved (%d entries)", name, len(items))
		return false
	}

	added, _ := diffEntries(entriesByID(prev.Items), items)
	if len(added) > 0 {
		addedBySubject[name] = added
		*subjectOrder = append(*subjectOrder, name)
		log.Printf("✓ %s: %d new entries", name, len(added))
	} else {
		log.Printf("✓ %s: no changes", name)
	}
	return true
}

// runSingle handles single-URL mode. The bool result reports an early exit
// (first-run baseline, always silent).
func (w *Watcher) runSingle(state *State, addedBySubject map[string][]Entry, subjectOrder *[]string) (bool, error) {
	markup, err := w.fetcher.Fetch(w.cfg.SearchURL)
	if err != nil {
		return true, fmt.Errorf("fetching search page: %w", err)
	}

	items := extractEntries(markup, w.cfg.Selectors())
	snapshot := &Snapshot{Checksum: pageChecksum(markup), Items: items}

	prev := state.Single
	state.Single = snapshot
	if prev == nil {
		if err := saveState(w.statePath, state); err != nil {
			return true, err
		}
		log.Printf("First run (single URL): baseline saved. No notification.")
		return true, nil
	}

	added, _ := diffEntries(entriesByID(prev.Items), items)
	if len(added) > 0 {
		addedBySubject[w.cfg.SearchURL] = added
		*subjectOrder = append(*subjectOrder, w.cfg.SearchURL)
	}
	return false, nil
}

// notify sends the aggregate summary, then per-subject entry details. Only
// reached on runs that were not silent baselines.
func (w *Watcher) notify(addedBySubject map[string][]Entry, subjectOrder []string) {
	if !w.cfg.Telegram.Enabled {
		return
	}

	if len(addedBySubject) == 0 {
		w.notifier.SendText("No updates across the board.")
		return
	}

	lines := []string{"New entries this pass:"}
	for _, subject := range subjectOrder {
		lines = append(lines, fmt.Sprintf("%s: %d new %s",
			subject, len(addedBySubject[subject]), w.subjectLink(subject)))
	}
	for _, chunk := range splitMessage(strings.Join(lines, "\n"), maxMessageLen) {
		w.notifier.SendText(chunk)
	}

	for _, subject := range subjectOrder {
		w.notifySubject(subject, addedBySubject[subject])
	}
}

// subjectLink returns the query URL for an author subject; single-mode
// subjects already are URLs.
func (w *Watcher) subjectLink(subject string) string {
	if strings.Contains(subject, "://") {
		return subject
	}
	return w.queryURL(subject)
}

// notifySubject sends one subject's additions: a header, cover-bearing
// entries batched into media groups, coverless entries (and any batch that
// failed to send) as plain text.
func (w *Watcher) notifySubject(subject string, entries []Entry) {
	w.notifier.SendText(fmt.Sprintf("%s — %d new entries", subject, len(entries)))

	var withCover []Entry
	var textLines []string
	for _, e := range entries {
		if e.Cover != "" {
			withCover = append(withCover, e)
		} else {
			textLines = append(textLines, entryLine(e))
		}
	}

	for start := 0; start < len(withCover); start += maxMediaGroupSize {
		end := min(start+maxMediaGroupSize, len(withCover))
		batch := withCover[start:end]

		// A lone photo gets sendPhoto, which allows a fuller caption than an
		// album slot does.
		if len(batch) == 1 {
			e := batch[0]
			if !w.notifier.SendPhoto(e.Cover, truncateRunes(e.Title, maxPhotoCaption)) {
				textLines = append(textLines, entryLine(e))
			}
			continue
		}

		items := make([]MediaItem, 0, len(batch))
		for _, e := range batch {
			items = append(items, MediaItem{
				Type:    "photo",
				Media:   e.Cover,
				Caption: truncateRunes(e.Title, maxGroupCaption),
			})
		}
		if !w.notifier.SendMediaGroup(items) {
			for _, e := range batch {
				textLines = append(textLines, entryLine(e))
			}
		}
	}

	if len(textLines) > 0 {
		for _, chunk := range splitMessage(strings.Join(textLines, "\n\n"), maxMessageLen) {
			w.notifier.SendText(chunk)
		}
	}
}

func entryLine(e Entry) string {
	if e.URL == "" {
		return e.Title
	}
	return e.Title + "\n" + e.URL
}
