package history

import (
	"database/sql"
	"errors"
	"time"
)

const attemptColumns = "id, project, batch_id, row_id, kind, prompt, outcome, error_message, asset_count, started_at, finished_at"

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (Attempt, error) {
	var (
		a            Attempt
		prompt       sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  string
	)
	if err := scanner.Scan(
		&a.ID,
		&a.Project,
		&a.BatchID,
		&a.RowID,
		&a.Kind,
		&prompt,
		&a.Outcome,
		&errorMessage,
		&a.AssetCount,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Attempt{}, err
	}
	a.Prompt = prompt.String
	a.ErrorMessage = errorMessage.String
	if started, err := parseTimeString(startedRaw); err == nil {
		a.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw); err == nil {
		a.FinishedAt = finished
	}
	return a, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
