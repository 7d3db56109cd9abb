package excerpt

const (
	// NoteCommentAltered is added when a comment line was rewritten for display.
	NoteCommentAltered = "A comment block was altered for formatting purposes."
	// NoteContentTrimmed is added when lines were dropped to fit the budget.
	NoteContentTrimmed = "Requested content was trimmed."
	// NoteLineShortened is added when a degraded excerpt cut its only line.
	NoteLineShortened = "A line was shortened to fit the message size."
)

// NoteSet is an insertion-ordered set of notes. The zero value is ready to use.
type NoteSet struct {
	orderedNotes []string
	seenNotes    map[string]struct{}
}

// Add inserts note unless it is already present.
func (noteSet *NoteSet) Add(note string) {
	if noteSet.Contains(note) {
		return
	}
	if noteSet.seenNotes == nil {
		noteSet.seenNotes = make(map[string]struct{})
	}
	noteSet.seenNotes[note] = struct{}{}
	noteSet.orderedNotes = append(noteSet.orderedNotes, note)
}

// Contains reports whether note was added.
func (noteSet NoteSet) Contains(note string) bool {
	_, exists := noteSet.seenNotes[note]
	return exists
}

// Len returns the number of distinct notes.
func (noteSet NoteSet) Len() int {
	return len(noteSet.orderedNotes)
}

// Notes returns the notes in first-insertion order.
func (noteSet NoteSet) Notes() []string {
	return append([]string(nil), noteSet.orderedNotes...)
}

// Clone returns an independent copy.
func (noteSet NoteSet) Clone() NoteSet {
	var cloned NoteSet
	for _, note := range noteSet.orderedNotes {
		cloned.Add(note)
	}
	return cloned
}
