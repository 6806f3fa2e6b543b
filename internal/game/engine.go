// internal/game/engine.go
//
// Round engine for a single duel round.
// Responsibilities:
//   - Validate secrets and guesses (exactly 5 letters A–Z).
//   - Score guesses using the classic two‑pass algorithm.
//   - Track round progress: attempts, won, over.
//
// Notes:
//   - Words are normalized to uppercase before they reach this package's
//     scoring path; Normalize does trim + uppercase in one place.
//   - Score is duplicate-aware: a letter is never marked present/correct
//     more times than it occurs in the secret.
package game

import "strings"

const (
	// WordLen is the fixed secret/guess length.
	WordLen = 5
	// MaxGuesses bounds the attempts per round.
	MaxGuesses = 6
)

// Normalize trims surrounding whitespace and uppercases a word.
func Normalize(word string) string {
	return strings.ToUpper(strings.TrimSpace(word))
}

// ValidWord reports whether w is exactly WordLen uppercase letters A–Z.
// Callers normalize first.
func ValidWord(w string) bool {
	if len(w) != WordLen {
		return false
	}
	for _, r := range w {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// ApplyGuess scores a normalized, validated guess against the round's
// secret and appends it to the history, updating Won/Over.
// Returns the feedback row for the guess.
//
// Preconditions (enforced by the session layer):
//   - r.Secret is a valid word.
//   - guess is a valid word.
//   - the round is not over.
func (r *Round) ApplyGuess(guess string) []Mark {
	marks := Score(r.Secret, guess)
	r.Guesses = append(r.Guesses, guess)
	r.Feedback = append(r.Feedback, marks)

	if allCorrect(marks) {
		r.Won, r.Over = true, true
	} else if len(r.Guesses) >= MaxGuesses {
		r.Over = true
	}
	return marks
}

// Attempts returns the number of guesses made this round.
func (r *Round) Attempts() int { return len(r.Guesses) }

// Score implements the standard two‑pass scoring algorithm.
//
// Pass 1:
//   - Mark exact matches as Correct.
//   - Count remaining (non‑correct) secret letters by letter index.
//
// Pass 2:
//   - For each remaining guess letter: if there is remaining count for
//     that letter, mark Present and decrement the count; otherwise Absent.
//
// This ensures correct behavior with repeated letters in both secret and
// guess: exact matches always consume a letter instance before partial
// matches do.
func Score(secret, guess string) []Mark {
	n := len(guess)
	res := make([]Mark, n)
	secretRunes := []rune(secret)
	guessRunes := []rune(guess)

	// Letter frequency for the non‑correct positions (A–Z).
	var counts [26]int

	// First pass: mark exact hits and collect counts for the rest.
	for i := 0; i < n; i++ {
		if guessRunes[i] == secretRunes[i] {
			res[i] = MarkCorrect
		} else {
			counts[idx(secretRunes[i])]++
		}
	}

	// Second pass: resolve present/absent for the remaining tiles.
	for i := 0; i < n; i++ {
		if res[i] == MarkCorrect {
			continue
		}
		j := idx(guessRunes[i])
		if j >= 0 && j < 26 && counts[j] > 0 {
			res[i] = MarkPresent
			counts[j]--
		} else {
			res[i] = MarkAbsent
		}
	}
	return res
}

// idx maps an uppercase ASCII letter rune to 0..25.
// Assumes inputs are validated to A–Z elsewhere.
func idx(r rune) int { return int(r - 'A') }

// allCorrect returns true if every mark is MarkCorrect.
func allCorrect(m []Mark) bool {
	for _, x := range m {
		if x != MarkCorrect {
			return false
		}
	}
	return true
}
