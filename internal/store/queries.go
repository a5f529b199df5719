package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quarklab/pixelci/internal/ci"
)

// Run operations

// InsertRun records a run and returns its ID.
func (s *Store) InsertRun(run *Run) (int64, error) {
	query := `
		INSERT INTO runs (config_path, started_at, duration_ms, exit_code, leg_count)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		run.ConfigPath,
		run.StartedAt.Format(time.RFC3339),
		run.Duration.Milliseconds(),
		run.ExitCode,
		run.LegCount,
	)
	if err != nil {
		return 0, wrapQueryErr("failed to insert run", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	run.ID = id
	return id, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id int64) (*Run, error) {
	query := `
		SELECT id, config_path, started_at, duration_ms, exit_code, leg_count
		FROM runs
		WHERE id = ?
	`

	var run Run
	var startedAt string
	var durationMs int64

	err := s.db.QueryRow(query, id).Scan(
		&run.ID,
		&run.ConfigPath,
		&startedAt,
		&durationMs,
		&run.ExitCode,
		&run.LegCount,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to get run %d", id), err)
	}

	run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for run %d: %w", id, err)
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}

// ListRuns returns recorded runs, newest first, up to limit (0 for all).
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := `
		SELECT id, config_path, started_at, duration_ms, exit_code, leg_count
		FROM runs
		ORDER BY started_at DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr("failed to list runs", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt string
		var durationMs int64
		if err := rows.Scan(&run.ID, &run.ConfigPath, &startedAt, &durationMs, &run.ExitCode, &run.LegCount); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %d: %w", run.ID, err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and, via cascade, its legs and commands.
func (s *Store) DeleteRun(id int64) error {
	result, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to delete run %d", id), err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return nil
}

// CountRuns returns the number of recorded runs.
func (s *Store) CountRuns() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count)
	if err != nil {
		return 0, wrapQueryErr("failed to count runs", err)
	}
	return count, nil
}

// Leg operations

// InsertLeg records a leg of a run and returns its ID.
func (s *Store) InsertLeg(leg *Leg) (int64, error) {
	envJSON, err := json.Marshal(leg.Env)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal leg env: %w", err)
	}

	query := `
		INSERT INTO legs (run_id, leg_index, name, platform, env, exit_code, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		leg.RunID,
		leg.Index,
		leg.Name,
		leg.Platform,
		string(envJSON),
		leg.ExitCode,
		leg.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, wrapQueryErr("failed to insert leg", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get leg id: %w", err)
	}
	leg.ID = id
	return id, nil
}

// ListLegs returns the legs of a run in matrix order.
func (s *Store) ListLegs(runID int64) ([]*Leg, error) {
	query := `
		SELECT id, run_id, leg_index, name, platform, env, exit_code, duration_ms
		FROM legs
		WHERE run_id = ?
		ORDER BY leg_index
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to list legs for run %d", runID), err)
	}
	defer rows.Close()

	var legs []*Leg
	for rows.Next() {
		var leg Leg
		var envJSON string
		var durationMs int64
		if err := rows.Scan(&leg.ID, &leg.RunID, &leg.Index, &leg.Name, &leg.Platform, &envJSON, &leg.ExitCode, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan leg row: %w", err)
		}
		if err := json.Unmarshal([]byte(envJSON), &leg.Env); err != nil {
			return nil, fmt.Errorf("failed to unmarshal env for leg %d: %w", leg.ID, err)
		}
		leg.Duration = time.Duration(durationMs) * time.Millisecond
		legs = append(legs, &leg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating legs: %w", err)
	}
	return legs, nil
}

// Command operations

// InsertCommand records one executed command of a leg.
func (s *Store) InsertCommand(c *CommandRecord) (int64, error) {
	query := `
		INSERT INTO commands (leg_id, step, shell, line, exit_code, output)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query, c.LegID, c.Step, c.Shell, c.Line, c.ExitCode, c.Output)
	if err != nil {
		return 0, wrapQueryErr("failed to insert command", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get command id: %w", err)
	}
	c.ID = id
	return id, nil
}

// ListCommands returns the commands of a leg in execution order.
func (s *Store) ListCommands(legID int64) ([]*CommandRecord, error) {
	query := `
		SELECT id, leg_id, step, shell, line, exit_code, output
		FROM commands
		WHERE leg_id = ?
		ORDER BY id
	`

	rows, err := s.db.Query(query, legID)
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to list commands for leg %d", legID), err)
	}
	defer rows.Close()

	var cmds []*CommandRecord
	for rows.Next() {
		var c CommandRecord
		if err := rows.Scan(&c.ID, &c.LegID, &c.Step, &c.Shell, &c.Line, &c.ExitCode, &c.Output); err != nil {
			return nil, fmt.Errorf("failed to scan command row: %w", err)
		}
		cmds = append(cmds, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commands: %w", err)
	}
	return cmds, nil
}

// RecordRun persists a full run result with its legs and commands.
func (s *Store) RecordRun(configPath string, res ci.RunResult) (int64, error) {
	runID, err := s.InsertRun(&Run{
		ConfigPath: configPath,
		StartedAt:  res.Started,
		Duration:   res.Duration,
		ExitCode:   res.ExitCode(),
		LegCount:   len(res.Legs),
	})
	if err != nil {
		return 0, err
	}

	for _, legRes := range res.Legs {
		legID, err := s.InsertLeg(&Leg{
			RunID:    runID,
			Index:    legRes.Leg.Index,
			Name:     legRes.Leg.Name(),
			Platform: legRes.Leg.Platform,
			Env:      legRes.Leg.Env,
			ExitCode: legRes.ExitCode,
			Duration: legRes.Duration,
		})
		if err != nil {
			return 0, err
		}
		for _, step := range legRes.Steps {
			_, err := s.InsertCommand(&CommandRecord{
				LegID:    legID,
				Step:     string(step.Step),
				Shell:    string(step.Result.Command.Shell),
				Line:     step.Result.Expanded,
				ExitCode: step.Result.ExitCode,
				Output:   step.Result.Output,
			})
			if err != nil {
				return 0, err
			}
		}
	}
	return runID, nil
}

// Scan operations

// InsertScan records an interpreted raw data file summary.
func (s *Store) InsertScan(scan *Scan) (int64, error) {
	query := `
		INSERT INTO scans (source, taken_at, word_count, event_count, hit_count, error_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		scan.Source,
		scan.TakenAt.Format(time.RFC3339),
		scan.WordCount,
		scan.EventCount,
		scan.HitCount,
		scan.ErrorCount,
	)
	if err != nil {
		return 0, wrapQueryErr("failed to insert scan", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get scan id: %w", err)
	}
	scan.ID = id
	return id, nil
}

// ListScans returns recorded scans, newest first, up to limit (0 for all).
func (s *Store) ListScans(limit int) ([]*Scan, error) {
	query := `
		SELECT id, source, taken_at, word_count, event_count, hit_count, error_count
		FROM scans
		ORDER BY taken_at DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr("failed to list scans", err)
	}
	defer rows.Close()

	var scans []*Scan
	for rows.Next() {
		var scan Scan
		var takenAt string
		if err := rows.Scan(&scan.ID, &scan.Source, &takenAt, &scan.WordCount, &scan.EventCount, &scan.HitCount, &scan.ErrorCount); err != nil {
			return nil, fmt.Errorf("failed to scan scan row: %w", err)
		}
		scan.TakenAt, err = time.Parse(time.RFC3339, takenAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse taken_at for scan %d: %w", scan.ID, err)
		}
		scans = append(scans, &scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scans: %w", err)
	}
	return scans, nil
}

// Calibration operations

// InsertCalibration persists a calibration fit with its points.
func (s *Store) InsertCalibration(result *CalibrationResult, points []CalibrationPoint) (int64, error) {
	query := `
		INSERT INTO calibration_results (created_at, slope, intercept, r_squared, fit_low, fit_high)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.Exec(query,
		result.CreatedAt.Format(time.RFC3339),
		result.Slope,
		result.Intercept,
		result.RSquared,
		result.FitLow,
		result.FitHigh,
	)
	if err != nil {
		return 0, wrapQueryErr("failed to insert calibration result", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get calibration id: %w", err)
	}
	result.ID = id

	pointQuery := `
		INSERT INTO calibration_points (result_id, plsr_dac, mean_tot, std_tot, hit_count)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, p := range points {
		if _, err := s.db.Exec(pointQuery, id, p.PlsrDAC, p.MeanTot, p.StdTot, p.HitCount); err != nil {
			return 0, fmt.Errorf("failed to insert calibration point at dac %d: %w", p.PlsrDAC, err)
		}
	}
	return id, nil
}

// GetLatestCalibration returns the most recent calibration fit, or an
// error when none has been recorded.
func (s *Store) GetLatestCalibration() (*CalibrationResult, error) {
	query := `
		SELECT id, created_at, slope, intercept, r_squared, fit_low, fit_high
		FROM calibration_results
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var result CalibrationResult
	var createdAt string
	err := s.db.QueryRow(query).Scan(
		&result.ID,
		&createdAt,
		&result.Slope,
		&result.Intercept,
		&result.RSquared,
		&result.FitLow,
		&result.FitHigh,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no calibration recorded")
	}
	if err != nil {
		return nil, wrapQueryErr("failed to get latest calibration", err)
	}

	result.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for calibration %d: %w", result.ID, err)
	}
	return &result, nil
}

// ListCalibrationPoints returns the points of a calibration ordered by
// PlsrDAC setting.
func (s *Store) ListCalibrationPoints(resultID int64) ([]CalibrationPoint, error) {
	query := `
		SELECT result_id, plsr_dac, mean_tot, std_tot, hit_count
		FROM calibration_points
		WHERE result_id = ?
		ORDER BY plsr_dac
	`

	rows, err := s.db.Query(query, resultID)
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to list calibration points for %d", resultID), err)
	}
	defer rows.Close()

	var points []CalibrationPoint
	for rows.Next() {
		var p CalibrationPoint
		if err := rows.Scan(&p.ResultID, &p.PlsrDAC, &p.MeanTot, &p.StdTot, &p.HitCount); err != nil {
			return nil, fmt.Errorf("failed to scan calibration point row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calibration points: %w", err)
	}
	return points, nil
}
