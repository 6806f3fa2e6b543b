// internal/game/types.go
//
// Core type definitions for the duel round engine.
// Defines:
//   - Mark: per-letter result of a guess (correct/present/absent).
//   - Round: guess/feedback state for a single round of a duel.

package game

// Mark represents the evaluation result for a single letter in a guess.
// Possible values:
//   - "correct": letter is correct and in the correct position.
//   - "present": letter exists in the secret but in a different position.
//   - "absent":  letter does not exist in the secret at all.
type Mark string

const (
	MarkCorrect Mark = "correct"
	MarkPresent      = "present"
	MarkAbsent       = "absent"
)

// Round holds the guess history for one round of a duel, from word lock
// to win or exhaustion.
type Round struct {
	Secret   string   // The secret word (always uppercase), "" until locked.
	Guesses  []string // Guesses made so far (uppercased), at most MaxGuesses.
	Feedback [][]Mark // Per-guess feedback rows, parallel to Guesses.
	Won      bool     // True once a guess matched the secret exactly.
	Over     bool     // True once won or MaxGuesses exhausted.
}
