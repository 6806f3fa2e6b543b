package duel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worduel/server/internal/game"
)

func TestJoinFillsGuesserSeat(t *testing.T) {
	s := NewSession("AB2XYZ", "setter-1")

	res, err := s.Join("guesser-1")
	require.NoError(t, err)
	assert.False(t, res.Started, "no word locked yet")
	assert.Equal(t, "setter-1", res.SetterConn, "setter gets the opponent-joined nudge")
	assert.True(t, s.IsMember("guesser-1"))
}

func TestJoinRoomFull(t *testing.T) {
	s := NewSession("AB2XYZ", "setter-1")
	_, err := s.Join("guesser-1")
	require.NoError(t, err)

	_, err = s.Join("third")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.False(t, s.IsMember("third"))
}

func TestJoinOwnRoomRejected(t *testing.T) {
	// The creator cannot seat themselves as guesser too; a connection
	// never holds both seats.
	s := NewSession("AB2XYZ", "setter-1")
	_, err := s.Join("setter-1")
	assert.ErrorIs(t, err, ErrRoomFull)

	// No one-player round: the word lock still waits for an opponent.
	sw, err := s.SetWord("setter-1", "CRANE")
	require.NoError(t, err)
	assert.False(t, sw.Started)

	// The guesser seat stayed open for a real opponent.
	res, err := s.Join("opponent")
	require.NoError(t, err)
	assert.True(t, res.Started)
}

func TestJoinLockedNotStartedStartsRound(t *testing.T) {
	// Setter locks a word while alone, then the first guesser arrives.
	s := NewSession("AB2XYZ", "setter-1")
	sw, err := s.SetWord("setter-1", "crane")
	require.NoError(t, err)
	assert.False(t, sw.Started, "no guesser yet")

	res, err := s.Join("guesser-1")
	require.NoError(t, err)
	assert.True(t, res.Started, "locked word + guesser arrival starts the round")

	locked, started, over, _ := s.State()
	assert.True(t, locked)
	assert.True(t, started)
	assert.False(t, over)
}

func TestJoinMidRoundRefused(t *testing.T) {
	s := NewSession("AB2XYZ", "setter-1")
	_, err := s.Join("guesser-1")
	require.NoError(t, err)
	_, err = s.SetWord("setter-1", "CRANE")
	require.NoError(t, err)

	// Guesser drops mid-round; the seat is vacant but the round is live.
	s.Disconnect("guesser-1")

	_, err = s.Join("late")
	assert.ErrorIs(t, err, ErrGameInProgress)

	locked, started, _, attempts := s.State()
	assert.True(t, locked)
	assert.True(t, started)
	assert.Zero(t, attempts, "refused join left state unchanged")
}

func TestSetWord(t *testing.T) {
	tests := []struct {
		name    string
		conn    string
		word    string
		wantErr error
	}{
		{"valid lowercase normalized", "setter-1", "crane", nil},
		{"not the setter", "guesser-1", "CRANE", ErrNotSetter},
		{"too short", "setter-1", "CRAN", ErrInvalidWord},
		{"too long", "setter-1", "CRANES", ErrInvalidWord},
		{"non-letter", "setter-1", "CR4NE", ErrInvalidWord},
		{"empty", "setter-1", "", ErrInvalidWord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("AB2XYZ", "setter-1")
			_, _ = s.Join("guesser-1")
			res, err := s.SetWord(tt.conn, tt.word)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				locked, started, _, _ := s.State()
				assert.False(t, locked, "rejected set-word must not lock")
				assert.False(t, started)
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Started, "guesser already seated")
		})
	}
}

func TestSetWordIdempotentRejection(t *testing.T) {
	s := NewSession("AB2XYZ", "setter-1")
	_, _ = s.Join("guesser-1")
	_, err := s.SetWord("setter-1", "CRANE")
	require.NoError(t, err)

	// Repeating the call never mutates state and always errors the same.
	for i := 0; i < 3; i++ {
		_, err = s.SetWord("setter-1", "PLUMB")
		assert.ErrorIs(t, err, ErrGameInProgress)
	}
	out, ok := s.Guess("guesser-1", "CRANE")
	require.True(t, ok)
	assert.True(t, out.Won, "original word still in effect")
}

func TestGuessLifecycle(t *testing.T) {
	s := NewSession("AB2XYZ", "setter-1")
	_, _ = s.Join("guesser-1")

	// Before the word is locked: silent drop.
	_, ok := s.Guess("guesser-1", "CRANE")
	assert.False(t, ok)

	_, err := s.SetWord("setter-1", "ALLOY")
	require.NoError(t, err)

	// Malformed guesses: silent drop, no attempt consumed.
	for _, bad := range []string{"", "LL", "LLAMAS", "LL4MA"} {
		_, ok := s.Guess("guesser-1", bad)
		assert.False(t, ok, "guess %q", bad)
	}

	out, ok := s.Guess("guesser-1", "llama")
	require.True(t, ok)
	assert.Equal(t, "LLAMA", out.Guess)
	assert.Equal(t, []game.Mark{
		game.MarkPresent, game.MarkCorrect, game.MarkPresent,
		game.MarkAbsent, game.MarkAbsent,
	}, out.Feedback)
	assert.False(t, out.Won)
	assert.False(t, out.Over)
	assert.Equal(t, 1, out.Attempts)

	out, ok = s.Guess("guesser-1", "ALLOY")
	require.True(t, ok)
	assert.True(t, out.Won)
	assert.True(t, out.Over)
	assert.Equal(t, 2, out.Attempts)

	// After the round is over: silent drop.
	_, ok = s.Guess("guesser-1", "ALLOY")
	assert.False(t, ok)
}

func TestNonMembersCannotTouchTheRound(t *testing.T) {
	s := NewSession("AB2XYZ", "setter-1")
	_, _ = s.Join("guesser-1")
	_, err := s.SetWord("setter-1", "CRANE")
	require.NoError(t, err)

	// A connection that merely knows the code cannot burn attempts.
	_, ok := s.Guess("intruder", "GODLY")
	assert.False(t, ok)
	_, _, _, attempts := s.State()
	assert.Zero(t, attempts)

	// Nor can it reset a live round with a swap.
	out, ok := s.Guess("guesser-1", "CRANE")
	require.True(t, ok)
	require.True(t, out.Over)
	_, ok = s.SwapRoles("intruder")
	assert.False(t, ok)
	locked, started, _, _ := s.State()
	assert.True(t, locked, "foreign swap left the round alone")
	assert.True(t, started)

	// A member's swap still works.
	_, ok = s.SwapRoles("guesser-1")
	assert.True(t, ok)
}

func TestRoundOverOnSixthGuessOnly(t *testing.T) {
	s := NewSession("AB2XYZ", "setter-1")
	_, _ = s.Join("guesser-1")
	_, err := s.SetWord("setter-1", "CRANE")
	require.NoError(t, err)

	for i := 1; i <= game.MaxGuesses; i++ {
		out, ok := s.Guess("guesser-1", "GODLY")
		require.True(t, ok)
		assert.Equal(t, i, out.Attempts)
		assert.Equal(t, i == game.MaxGuesses, out.Over,
			"over exactly on guess %d", game.MaxGuesses)
		assert.False(t, out.Won)
	}
	_, ok := s.Guess("guesser-1", "GODLY")
	assert.False(t, ok, "seventh guess dropped")
}

func TestSwapRolesResetsRoundAndInvertsSeats(t *testing.T) {
	s := NewSession("AB2XYZ", "setter-1")
	_, _ = s.Join("guesser-1")
	_, err := s.SetWord("setter-1", "CRANE")
	require.NoError(t, err)
	out, ok := s.Guess("guesser-1", "CRANE")
	require.True(t, ok)
	require.True(t, out.Over)

	res, ok := s.SwapRoles("guesser-1")
	require.True(t, ok)
	assert.Equal(t, "guesser-1", res.NewSetterConn)
	assert.Equal(t, map[string]Role{
		"guesser-1": RoleSetter,
		"setter-1":  RoleGuesser,
	}, res.Roles)

	locked, started, over, attempts := s.State()
	assert.False(t, locked)
	assert.False(t, started)
	assert.False(t, over)
	assert.Zero(t, attempts)

	// The new setter can lock, the old setter cannot.
	_, err = s.SetWord("setter-1", "PLUMB")
	assert.ErrorIs(t, err, ErrNotSetter)
	sw, err := s.SetWord("guesser-1", "PLUMB")
	require.NoError(t, err)
	assert.True(t, sw.Started)
}

func TestSwapRolesGuards(t *testing.T) {
	// Not started: no-op.
	s := NewSession("AB2XYZ", "setter-1")
	_, _ = s.Join("guesser-1")
	_, ok := s.SwapRoles("guesser-1")
	assert.False(t, ok)

	// Started but the guesser seat was vacated by a disconnect: no-op.
	_, err := s.SetWord("setter-1", "CRANE")
	require.NoError(t, err)
	s.Disconnect("guesser-1")
	_, ok = s.SwapRoles("setter-1")
	assert.False(t, ok)
}

func TestSwapRolesToleratesDepartedSetter(t *testing.T) {
	s := NewSession("AB2XYZ", "conn-a")
	_, _ = s.Join("conn-b")
	_, err := s.SetWord("conn-a", "CRANE")
	require.NoError(t, err)

	// The previous setter drops right before the swap request lands.
	// Disconnect promotes conn-b to setter and vacates the guesser seat,
	// so the swap guard kicks in.
	s.Disconnect("conn-a")
	_, ok := s.SwapRoles("conn-b")
	assert.False(t, ok)
	assert.Equal(t, []string{"conn-b"}, s.Members())
}

func TestDisconnect(t *testing.T) {
	t.Run("guesser leaves", func(t *testing.T) {
		s := NewSession("AB2XYZ", "setter-1")
		_, _ = s.Join("guesser-1")
		res := s.Disconnect("guesser-1")
		assert.False(t, res.Empty)
		assert.Equal(t, "setter-1", res.SetterConn)
	})

	t.Run("setter leaves, seat reassigned", func(t *testing.T) {
		s := NewSession("AB2XYZ", "setter-1")
		_, _ = s.Join("guesser-1")
		res := s.Disconnect("setter-1")
		assert.False(t, res.Empty)
		assert.Equal(t, "guesser-1", res.SetterConn, "remaining member takes the seat")

		// The promoted member can lock the next word.
		_, err := s.SetWord("guesser-1", "CRANE")
		assert.NoError(t, err)
	})

	t.Run("last member leaves", func(t *testing.T) {
		s := NewSession("AB2XYZ", "setter-1")
		res := s.Disconnect("setter-1")
		assert.True(t, res.Empty)
		assert.Equal(t, "", res.SetterConn)
	})

	t.Run("idempotent for departed ids", func(t *testing.T) {
		s := NewSession("AB2XYZ", "setter-1")
		_, _ = s.Join("guesser-1")
		s.Disconnect("guesser-1")
		res := s.Disconnect("guesser-1")
		assert.False(t, res.Empty)
		assert.Equal(t, "setter-1", res.SetterConn)
	})
}

func TestDisconnectStopsSwapTimer(t *testing.T) {
	s := NewSession("AB2XYZ", "setter-1")
	fired := make(chan struct{}, 1)
	s.SetSwapTimer(time.AfterFunc(50*time.Millisecond, func() { fired <- struct{}{} }))

	res := s.Disconnect("setter-1")
	require.True(t, res.Empty)

	select {
	case <-fired:
		t.Fatal("swap timer fired after room teardown")
	case <-time.After(100 * time.Millisecond):
	}
}
