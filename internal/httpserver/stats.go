// internal/httpserver/stats.go
//
// Duel history persistence and the read endpoints over it. Writes are
// best-effort: a failed insert costs a log line, never a game.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// RecordRound persists a finished round for each authenticated
// participant and bumps their aggregate counters. Implements
// ws.ResultRecorder; called off the game path.
//
// The setter wins the round when the guesser runs out of attempts.
func (s *Server) RecordRound(setterUserID, guesserUserID, room string, won bool, attempts int) {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		log.Warn().Err(err).Msg("record round: begin")
		return
	}
	defer func() { _ = tx.Rollback() }()

	record := func(userID, role string, userWon bool) {
		if userID == "" {
			return
		}
		if _, err := tx.Exec(`INSERT INTO duels (user_id, room, role, won, attempts, finished_at)
		                      VALUES (?,?,?,?,?,?)`, userID, room, role, userWon, attempts, now); err != nil {
			log.Warn().Err(err).Str("user", userID).Msg("insert duel row")
		}
		col := "setter_wins"
		if role == "guesser" {
			col = "guesser_wins"
		}
		q := `UPDATE users SET rounds_played = rounds_played + 1 WHERE id=?`
		if userWon {
			q = `UPDATE users SET rounds_played = rounds_played + 1, ` + col + ` = ` + col + ` + 1 WHERE id=?`
		}
		if _, err := tx.Exec(q, userID); err != nil {
			log.Warn().Err(err).Str("user", userID).Msg("bump stats")
		}
	}

	record(setterUserID, "setter", !won)
	record(guesserUserID, "guesser", won)

	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("record round: commit")
	}
}

// handleMyStats returns the caller's aggregate duel counters.
func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	if me == nil {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	u, err := s.findUserByID(me.ID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":           u.ID,
		"roundsPlayed": u.RoundsPlayed,
		"setterWins":   u.SetterWins,
		"guesserWins":  u.GuesserWins,
	})
}

// handleMyDuels lists the caller's recent rounds, newest first.
func (s *Server) handleMyDuels(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	if me == nil {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	rows, err := s.db.Query(`SELECT room, role, won, attempts, finished_at
	                         FROM duels WHERE user_id=? ORDER BY finished_at DESC, id DESC LIMIT 50`, me.ID)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type duelRow struct {
		Room       string `json:"room"`
		Role       string `json:"role"`
		Won        bool   `json:"won"`
		Attempts   int    `json:"attempts"`
		FinishedAt string `json:"finishedAt"`
	}
	out := []duelRow{}
	for rows.Next() {
		var d duelRow
		if err := rows.Scan(&d.Room, &d.Role, &d.Won, &d.Attempts, &d.FinishedAt); err == nil {
			out = append(out, d)
		}
	}
	_ = json.NewEncoder(w).Encode(out)
}
