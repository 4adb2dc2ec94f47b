package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/decoryard/decoryard/internal/model"
)

// StartSession begins a work session in a zone. At most one session per zone
// may be active (end_time null) at a time.
func StartSession(ctx context.Context, db *sql.DB, deploymentID, location, notes string) (*model.WorkSession, error) {
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deployment_locations WHERE deployment_id = ? AND name = ?`,
		deploymentID, location,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking location: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("location %s in deployment %s: %w", location, deploymentID, ErrNotFound)
	}

	var active int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM work_sessions
		 WHERE deployment_id = ? AND location_name = ? AND end_time IS NULL`,
		deploymentID, location,
	).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("checking active session: %w", err)
	}
	if active > 0 {
		return nil, fmt.Errorf("zone %s: %w", location, ErrSessionActive)
	}

	session := &model.WorkSession{
		ID:        uuid.NewString(),
		StartTime: time.Now().UTC(),
		Notes:     notes,
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO work_sessions (id, deployment_id, location_name, start_time, notes)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID, deploymentID, location, session.StartTime, session.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	return session, nil
}

// EndSession closes an active work session and reports its duration.
func EndSession(ctx context.Context, db *sql.DB, deploymentID, location, sessionID, notes string) (*model.WorkSession, error) {
	session := &model.WorkSession{}
	var endTime sql.NullTime
	var storedNotes sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, notes FROM work_sessions
		 WHERE id = ? AND deployment_id = ? AND location_name = ?`,
		sessionID, deploymentID, location,
	).Scan(&session.ID, &session.StartTime, &endTime, &storedNotes)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if endTime.Valid {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionEnded)
	}

	now := time.Now().UTC()
	session.EndTime = &now
	session.Notes = storedNotes.String
	if notes != "" {
		session.Notes = notes
	}

	_, err = db.ExecContext(ctx,
		`UPDATE work_sessions SET end_time = ?, notes = ? WHERE id = ?`,
		now, session.Notes, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("ending session: %w", err)
	}

	elapsed := now.Sub(session.StartTime)
	session.DurationSeconds = int(elapsed / time.Second)
	session.DurationMinutes = int(elapsed / time.Minute)
	return session, nil
}

// listSessions returns all work sessions for a zone, oldest first, with
// durations filled in for ended sessions.
func listSessions(ctx context.Context, db *sql.DB, deploymentID, location string) ([]model.WorkSession, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, start_time, end_time, notes FROM work_sessions
		 WHERE deployment_id = ? AND location_name = ?
		 ORDER BY start_time, id`,
		deploymentID, location,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.WorkSession{}
	for rows.Next() {
		var s model.WorkSession
		var notes sql.NullString
		if err := rows.Scan(&s.ID, &s.StartTime, &s.EndTime, &notes); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		s.Notes = notes.String
		if s.EndTime != nil {
			elapsed := s.EndTime.Sub(s.StartTime)
			s.DurationSeconds = int(elapsed / time.Second)
			s.DurationMinutes = int(elapsed / time.Minute)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
