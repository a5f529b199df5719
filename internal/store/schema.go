package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    config_path TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    duration_ms INTEGER NOT NULL,
    exit_code INTEGER NOT NULL,
    leg_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS legs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    leg_index INTEGER NOT NULL,
    name TEXT NOT NULL,
    platform TEXT,
    env TEXT NOT NULL,
    exit_code INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS commands (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    leg_id INTEGER NOT NULL,
    step TEXT NOT NULL,
    shell TEXT,
    line TEXT NOT NULL,
    exit_code INTEGER NOT NULL,
    output TEXT,
    FOREIGN KEY (leg_id) REFERENCES legs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS scans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    taken_at TIMESTAMP NOT NULL,
    word_count INTEGER NOT NULL,
    event_count INTEGER NOT NULL,
    hit_count INTEGER NOT NULL,
    error_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS calibration_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    slope REAL NOT NULL,
    intercept REAL NOT NULL,
    r_squared REAL NOT NULL,
    fit_low INTEGER NOT NULL,
    fit_high INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS calibration_points (
    result_id INTEGER NOT NULL,
    plsr_dac INTEGER NOT NULL,
    mean_tot REAL NOT NULL,
    std_tot REAL NOT NULL,
    hit_count INTEGER NOT NULL,
    PRIMARY KEY (result_id, plsr_dac),
    FOREIGN KEY (result_id) REFERENCES calibration_results(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_legs_run ON legs(run_id);
CREATE INDEX IF NOT EXISTS idx_commands_leg ON commands(leg_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_scans_taken ON scans(taken_at);
`
