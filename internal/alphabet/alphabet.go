// Package alphabet maps SIBI letters to the YOLO class indices used by the dataset.
package alphabet

import "strings"

// Letters are the 24 static SIBI letters the model knows: A..Y without J and Z.
// The position of a letter is its class index.
const Letters = "ABCDEFGHIKLMNOPQRSTUVWXY"

type Item struct {
	ID     int    `json:"id"`
	Letter string `json:"letter"`
}

// Count is the number of classes in the dataset.
func Count() int { return len(Letters) }

// Letter returns the letter for a class index.
func Letter(classID int) (string, bool) {
	if classID < 0 || classID >= len(Letters) {
		return "", false
	}
	return Letters[classID : classID+1], true
}

// ClassID returns the class index of a letter. Lookup is case-insensitive.
func ClassID(letter string) (int, bool) {
	if len(letter) != 1 {
		return 0, false
	}
	i := strings.Index(Letters, strings.ToUpper(letter))
	if i < 0 {
		return 0, false
	}
	return i, true
}

// Valid reports whether letter is one of the exact (upper-case) alphabet letters.
func Valid(letter string) bool {
	return len(letter) == 1 && strings.Contains(Letters, letter)
}

func Items() []Item {
	out := make([]Item, 0, len(Letters))
	for i := 0; i < len(Letters); i++ {
		out = append(out, Item{ID: i, Letter: Letters[i : i+1]})
	}
	return out
}
