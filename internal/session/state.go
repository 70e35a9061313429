package session

// State is a stage of the upload lifecycle.
type State int

const (
	// Idle means nothing is displayed and nothing is in flight.
	Idle State = iota

	// Validating checks the MIME type and size of a new upload.
	Validating

	// Loading reads the upload into memory.
	Loading

	// Decoding turns the bytes into a bitmap.
	Decoding

	// Processing sizes, renders and extracts the palette.
	Processing

	// Displayed means a palette is on screen and swatches are clickable.
	Displayed
)

var stateNames = [...]string{
	Idle:       "idle",
	Validating: "validating",
	Loading:    "loading",
	Decoding:   "decoding",
	Processing: "processing",
	Displayed:  "displayed",
}

// String returns the lower-case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Busy reports whether an upload is between validation and display.
func (s State) Busy() bool {
	return s >= Validating && s <= Processing
}
