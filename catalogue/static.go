package catalogue

// StaticLoader is a Loader over a fixed, in-memory list of libraries. The
// built-in library (populated by code-level registrations, never loaded
// from disk, per §6) is assembled as a StaticLoader.
type StaticLoader struct {
	Libraries []*Library
}

// NewStaticLoader returns a Loader that always returns the given libraries.
func NewStaticLoader(libs ...*Library) StaticLoader {
	return StaticLoader{Libraries: libs}
}

// Load implements Loader.
func (s StaticLoader) Load() ([]*Library, error) {
	return s.Libraries, nil
}
