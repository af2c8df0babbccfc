package scribble

import "fmt"

// wordBank is the set of guessable round words. Every entry either matches a
// Quick Draw category directly or has an alias in categoryAlias.
var wordBank = []string{
	"apple", "banana", "car", "dog", "elephant", "fish", "guitar", "house", "jellyfish", "kite",
	"lion", "moon", "octopus", "pizza", "robot", "sun", "tree", "umbrella", "violin", "whale", "zebra",
	"airplane", "butterfly", "castle", "dinosaur", "flower", "ghost", "helicopter", "kangaroo", "laptop",
	"mushroom", "owl", "penguin", "rainbow", "spider", "tornado", "unicorn", "volcano", "dragon",
	"rocket", "camera", "diamond", "grapes", "hammer", "igloo", "key", "lamp", "mountain", "parachute",
	"skateboard", "telescope", "star", "sword", "crown", "anchor", "balloon", "candle", "drum", "flag",
	"globe", "heart", "leaf", "magnet", "pencil", "rose", "snowflake", "tent", "cat", "bird", "frog",
	"snake", "turtle", "rabbit", "bear", "bee", "eagle", "fox", "giraffe", "horse", "koala", "monkey",
	"panda", "shark", "tiger", "wolf", "boat", "bridge", "bus", "chair", "clock", "door", "glasses",
	"hat", "ladder", "mirror", "piano", "scissors", "table", "train", "truck", "basketball", "football",
	"trophy", "fire", "lightning", "cloud", "rain", "snow", "beach", "forest", "cave", "river",
	"lighthouse", "burger", "taco", "sushi", "cake", "cookie", "donut", "popcorn", "bicycle", "compass",
	"backpack", "shoe", "watch", "bell", "cherry", "lemon", "strawberry", "pineapple", "carrot", "tomato",
}

// categoryAlias maps bank words to their Quick Draw category name when the
// two differ.
var categoryAlias = map[string]string{
	"burger":   "hamburger",
	"glasses":  "eyeglasses",
	"football": "soccer ball",
}

// Category returns the Quick Draw dataset category for a word.
func Category(word string) string {
	if alias, ok := categoryAlias[word]; ok {
		return alias
	}
	return word
}

// Clues returns hint lines for a round word. Clues never contain the word
// itself.
func Clues(word string) []string {
	length := len(word)
	first := upper(word[0])
	last := upper(word[length-1])

	vowels := 0
	spaces := 0
	for _, c := range word {
		switch c {
		case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
			vowels++
		case ' ':
			spaces++
		}
	}
	consonants := length - vowels - spaces

	clues := []string{
		fmt.Sprintf("It has %d letters", length),
		fmt.Sprintf("First letter: '%c'", first),
		fmt.Sprintf("Last letter: '%c'", last),
		fmt.Sprintf("Has %d %s, %d %s", vowels, plural(vowels, "vowel"), consonants, plural(consonants, "consonant")),
	}
	if length > 5 {
		mid := upper(word[length/2])
		if mid != first && mid != last {
			clues = append(clues, fmt.Sprintf("Middle letter: '%c'", mid))
		}
	}
	clues = append(clues, "Look carefully at the drawing...")
	return clues
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
