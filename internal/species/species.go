// Package species enumerates the species names the archive recognizes
// in spec-file searches.
package species

// Names lists the recognized species, default first.
func Names() []string {
	return []string{
		"Human",
		"Macaque",
		"Baboon",
		"Chimpanzee",
		"Galago",
		"Gorilla",
		"Marmoset",
		"Mouse",
		"Orangutan",
		"Rat",
		"Other",
	}
}

// Default is the species assumed when none is chosen.
func Default() string { return "Human" }

// Valid reports whether name is a recognized species.
func Valid(name string) bool {
	for _, s := range Names() {
		if s == name {
			return true
		}
	}
	return false
}
