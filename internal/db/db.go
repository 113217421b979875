package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crosswordsmith/rebusgen/internal/models"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Database struct {
	DB    *sql.DB
	Redis *redis.Client
}

func New(postgresURL, redisURL string) (*Database, error) {
	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// Configure connection pool for optimal performance
	db.SetMaxOpenConns(25)                 // Maximum number of open connections
	db.SetMaxIdleConns(10)                 // Maximum number of idle connections
	db.SetConnMaxLifetime(5 * time.Minute) // Maximum lifetime of a connection

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Database{DB: db, Redis: rdb}, nil
}

func (d *Database) Close() error {
	if err := d.DB.Close(); err != nil {
		return err
	}
	return d.Redis.Close()
}

// InitSchema creates all database tables
func (d *Database) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(255) UNIQUE,
		display_name VARCHAR(100) NOT NULL,
		avatar_url TEXT,
		password_hash VARCHAR(255),
		is_guest BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS user_stats (
		user_id VARCHAR(36) PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		puzzles_solved INTEGER DEFAULT 0,
		avg_solve_time FLOAT DEFAULT 0,
		streak_current INTEGER DEFAULT 0,
		streak_best INTEGER DEFAULT 0,
		total_play_time INTEGER DEFAULT 0,
		last_played_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS puzzles (
		id VARCHAR(36) PRIMARY KEY,
		date DATE UNIQUE,
		title VARCHAR(255) NOT NULL,
		author VARCHAR(100) NOT NULL,
		difficulty VARCHAR(20) NOT NULL,
		grid_width INTEGER NOT NULL,
		grid_height INTEGER NOT NULL,
		grid JSONB NOT NULL,
		clues_across JSONB NOT NULL,
		clues_down JSONB NOT NULL,
		theme VARCHAR(255),
		status VARCHAR(20) DEFAULT 'draft',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		published_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_puzzles_date ON puzzles(date);
	CREATE INDEX IF NOT EXISTS idx_puzzles_difficulty ON puzzles(difficulty);
	CREATE INDEX IF NOT EXISTS idx_puzzles_status ON puzzles(status);

	CREATE TABLE IF NOT EXISTS generation_jobs (
		id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(36) REFERENCES users(id) ON DELETE CASCADE,
		status VARCHAR(20) NOT NULL DEFAULT 'queued',
		config JSONB NOT NULL,
		puzzle_id VARCHAR(36) REFERENCES puzzles(id) ON DELETE SET NULL,
		error TEXT,
		attempt INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_generation_jobs_user_id ON generation_jobs(user_id);
	CREATE INDEX IF NOT EXISTS idx_generation_jobs_status ON generation_jobs(status);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`

	_, err := d.DB.Exec(schema)
	return err
}

// User operations
func (d *Database) CreateUser(user *models.User) error {
	_, err := d.DB.Exec(`
		INSERT INTO users (id, email, display_name, avatar_url, password_hash, is_guest, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, user.ID, user.Email, user.DisplayName, user.AvatarURL, user.Password, user.IsGuest, user.CreatedAt, user.UpdatedAt)

	if err != nil {
		return err
	}

	// Create initial stats
	_, err = d.DB.Exec(`
		INSERT INTO user_stats (user_id) VALUES ($1)
	`, user.ID)

	return err
}

func (d *Database) GetUserByID(id string) (*models.User, error) {
	user := &models.User{}
	err := d.DB.QueryRow(`
		SELECT id, email, display_name, avatar_url, password_hash, is_guest, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.DisplayName, &user.AvatarURL, &user.Password, &user.IsGuest, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

func (d *Database) GetUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	err := d.DB.QueryRow(`
		SELECT id, email, display_name, avatar_url, password_hash, is_guest, created_at, updated_at
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &user.AvatarURL, &user.Password, &user.IsGuest, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

func (d *Database) GetUserStats(userID string) (*models.UserStats, error) {
	stats := &models.UserStats{}
	err := d.DB.QueryRow(`
		SELECT user_id, puzzles_solved, avg_solve_time, streak_current, streak_best,
			   total_play_time, last_played_at
		FROM user_stats WHERE user_id = $1
	`, userID).Scan(&stats.UserID, &stats.PuzzlesSolved, &stats.AvgSolveTime, &stats.StreakCurrent,
		&stats.StreakBest, &stats.TotalPlayTime, &stats.LastPlayedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	return stats, err
}

func (d *Database) UpdateUserStats(stats *models.UserStats) error {
	_, err := d.DB.Exec(`
		UPDATE user_stats SET
			puzzles_solved = $2,
			avg_solve_time = $3,
			streak_current = $4,
			streak_best = $5,
			total_play_time = $6,
			last_played_at = $7
		WHERE user_id = $1
	`, stats.UserID, stats.PuzzlesSolved, stats.AvgSolveTime, stats.StreakCurrent,
		stats.StreakBest, stats.TotalPlayTime, stats.LastPlayedAt)
	return err
}

// Puzzle operations
func (d *Database) CreatePuzzle(puzzle *models.Puzzle) error {
	gridJSON, _ := json.Marshal(puzzle.Grid)
	cluesAcrossJSON, _ := json.Marshal(puzzle.CluesAcross)
	cluesDownJSON, _ := json.Marshal(puzzle.CluesDown)

	_, err := d.DB.Exec(`
		INSERT INTO puzzles (id, date, title, author, difficulty, grid_width, grid_height,
							 grid, clues_across, clues_down, theme, status, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, puzzle.ID, puzzle.Date, puzzle.Title, puzzle.Author, puzzle.Difficulty, puzzle.GridWidth, puzzle.GridHeight,
		gridJSON, cluesAcrossJSON, cluesDownJSON, puzzle.Theme, puzzle.Status, puzzle.CreatedAt, puzzle.PublishedAt)
	return err
}

func (d *Database) scanPuzzle(row interface {
	Scan(dest ...interface{}) error
}) (*models.Puzzle, error) {
	puzzle := &models.Puzzle{}
	var gridJSON, cluesAcrossJSON, cluesDownJSON []byte

	err := row.Scan(&puzzle.ID, &puzzle.Date, &puzzle.Title, &puzzle.Author, &puzzle.Difficulty,
		&puzzle.GridWidth, &puzzle.GridHeight, &gridJSON, &cluesAcrossJSON, &cluesDownJSON,
		&puzzle.Theme, &puzzle.Status, &puzzle.CreatedAt, &puzzle.PublishedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal(gridJSON, &puzzle.Grid)
	json.Unmarshal(cluesAcrossJSON, &puzzle.CluesAcross)
	json.Unmarshal(cluesDownJSON, &puzzle.CluesDown)

	return puzzle, nil
}

func (d *Database) GetPuzzleByID(id string) (*models.Puzzle, error) {
	row := d.DB.QueryRow(`
		SELECT id, date, title, author, difficulty, grid_width, grid_height,
			   grid, clues_across, clues_down, theme, status, created_at, published_at
		FROM puzzles WHERE id = $1
	`, id)
	return d.scanPuzzle(row)
}

func (d *Database) GetPuzzleByDate(date string) (*models.Puzzle, error) {
	row := d.DB.QueryRow(`
		SELECT id, date, title, author, difficulty, grid_width, grid_height,
			   grid, clues_across, clues_down, theme, status, created_at, published_at
		FROM puzzles WHERE date = $1 AND status = 'published'
	`, date)
	return d.scanPuzzle(row)
}

func (d *Database) GetTodayPuzzle() (*models.Puzzle, error) {
	today := time.Now().Format("2006-01-02")
	return d.GetPuzzleByDate(today)
}

func (d *Database) GetPuzzleArchive(status string, limit, offset int) ([]*models.Puzzle, error) {
	query := `
		SELECT id, date, title, author, difficulty, grid_width, grid_height,
			   grid, clues_across, clues_down, theme, status, created_at, published_at
		FROM puzzles WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	// Filter by status - empty string means all puzzles, otherwise filter by specific status
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, status)
		argNum++
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := d.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var puzzles []*models.Puzzle
	for rows.Next() {
		puzzle, err := d.scanPuzzle(rows)
		if err != nil {
			return nil, err
		}
		puzzles = append(puzzles, puzzle)
	}

	return puzzles, nil
}

// GetPuzzleArchiveEnhanced returns puzzles with optional difficulty filter, sorted by published date
func (d *Database) GetPuzzleArchiveEnhanced(difficulty string, limit, offset int) ([]*models.Puzzle, error) {
	query := `
		SELECT id, date, title, author, difficulty, grid_width, grid_height,
			   grid, clues_across, clues_down, theme, status, created_at, published_at
		FROM puzzles WHERE status = 'published'
	`
	args := []interface{}{}
	argNum := 1

	// Filter by difficulty if provided
	if difficulty != "" {
		query += fmt.Sprintf(" AND difficulty = $%d", argNum)
		args = append(args, difficulty)
		argNum++
	}

	// Sort by published date (newest first), then by date field
	query += " ORDER BY COALESCE(published_at, created_at) DESC, date DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := d.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var puzzles []*models.Puzzle
	for rows.Next() {
		puzzle, err := d.scanPuzzle(rows)
		if err != nil {
			return nil, err
		}
		puzzles = append(puzzles, puzzle)
	}

	return puzzles, nil
}

// GetPuzzleArchiveCount returns the total count of published puzzles with optional difficulty filter
func (d *Database) GetPuzzleArchiveCount(difficulty string) (int, error) {
	query := `SELECT COUNT(*) FROM puzzles WHERE status = 'published'`
	args := []interface{}{}

	if difficulty != "" {
		query += " AND difficulty = $1"
		args = append(args, difficulty)
	}

	var count int
	err := d.DB.QueryRow(query, args...).Scan(&count)
	return count, err
}

func (d *Database) UpdatePuzzleStatus(id, status string) error {
	query := `UPDATE puzzles SET status = $2`
	if status == "published" {
		query += ", published_at = CURRENT_TIMESTAMP"
	}
	query += " WHERE id = $1"

	_, err := d.DB.Exec(query, id, status)
	return err
}

func (d *Database) UpdatePuzzle(puzzle *models.Puzzle) error {
	gridJSON, _ := json.Marshal(puzzle.Grid)
	cluesAcrossJSON, _ := json.Marshal(puzzle.CluesAcross)
	cluesDownJSON, _ := json.Marshal(puzzle.CluesDown)

	_, err := d.DB.Exec(`
		UPDATE puzzles SET
			date = $2, title = $3, author = $4, difficulty = $5,
			grid_width = $6, grid_height = $7, grid = $8,
			clues_across = $9, clues_down = $10, theme = $11,
			status = $12, published_at = $13
		WHERE id = $1
	`, puzzle.ID, puzzle.Date, puzzle.Title, puzzle.Author, puzzle.Difficulty,
		puzzle.GridWidth, puzzle.GridHeight, gridJSON,
		cluesAcrossJSON, cluesDownJSON, puzzle.Theme,
		puzzle.Status, puzzle.PublishedAt)
	return err
}

// Generation job operations. A job tracks one async POST /v1/puzzles
// request from submission through the orchestrator's retry loop to a
// sealed puzzle or a terminal GenerationError.
func (d *Database) CreateGenerationJob(job *models.GenerationJob) error {
	_, err := d.DB.Exec(`
		INSERT INTO generation_jobs (id, user_id, status, config, puzzle_id, error, attempt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, job.ID, job.UserID, job.Status, job.ConfigJSON, job.PuzzleID, job.Error, job.Attempt, job.CreatedAt, job.UpdatedAt)
	return err
}

func (d *Database) GetGenerationJob(id string) (*models.GenerationJob, error) {
	job := &models.GenerationJob{}
	err := d.DB.QueryRow(`
		SELECT id, user_id, status, config, puzzle_id, error, attempt, created_at, updated_at
		FROM generation_jobs WHERE id = $1
	`, id).Scan(&job.ID, &job.UserID, &job.Status, &job.ConfigJSON, &job.PuzzleID, &job.Error, &job.Attempt, &job.CreatedAt, &job.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

func (d *Database) UpdateGenerationJobProgress(id string, status models.JobStatus, attempt int) error {
	_, err := d.DB.Exec(`
		UPDATE generation_jobs SET status = $2, attempt = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, status, attempt)
	return err
}

func (d *Database) CompleteGenerationJob(id, puzzleID string) error {
	_, err := d.DB.Exec(`
		UPDATE generation_jobs SET status = $2, puzzle_id = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, models.JobSucceeded, puzzleID)
	return err
}

func (d *Database) FailGenerationJob(id, errMsg string) error {
	_, err := d.DB.Exec(`
		UPDATE generation_jobs SET status = $2, error = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, models.JobFailed, errMsg)
	return err
}

func (d *Database) GetUserGenerationJobs(userID string, limit, offset int) ([]*models.GenerationJob, error) {
	rows, err := d.DB.Query(`
		SELECT id, user_id, status, config, puzzle_id, error, attempt, created_at, updated_at
		FROM generation_jobs WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.GenerationJob
	for rows.Next() {
		job := &models.GenerationJob{}
		if err := rows.Scan(&job.ID, &job.UserID, &job.Status, &job.ConfigJSON, &job.PuzzleID, &job.Error, &job.Attempt, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Redis session operations
func (d *Database) SetSession(ctx context.Context, userID, token string, expiration time.Duration) error {
	return d.Redis.Set(ctx, "session:"+token, userID, expiration).Err()
}

func (d *Database) GetSession(ctx context.Context, token string) (string, error) {
	return d.Redis.Get(ctx, "session:"+token).Result()
}

func (d *Database) DeleteSession(ctx context.Context, token string) error {
	return d.Redis.Del(ctx, "session:"+token).Err()
}

// Redis generation job progress pub/sub. Nothing in this repository calls
// these helpers: the realtime hub receives attempt records in-process from
// internal/api and relays them to GET /v1/puzzles/:id/events.
func (d *Database) PublishJobProgress(ctx context.Context, jobID string, payload []byte) error {
	return d.Redis.Publish(ctx, "job:"+jobID+":progress", payload).Err()
}

func (d *Database) SubscribeJobProgress(ctx context.Context, jobID string) *redis.PubSub {
	return d.Redis.Subscribe(ctx, "job:"+jobID+":progress")
}

// Redis dictionary lookup cache: stores a word list under "dictquery:"+key
// with an expiration. The fill solver does not call these helpers; it
// queries pkg/dictionary's in-memory index directly.
func (d *Database) CacheDictionaryQuery(ctx context.Context, key string, words []string, expiration time.Duration) error {
	data, err := json.Marshal(words)
	if err != nil {
		return err
	}
	return d.Redis.Set(ctx, "dictquery:"+key, data, expiration).Err()
}

func (d *Database) GetCachedDictionaryQuery(ctx context.Context, key string) ([]string, error) {
	data, err := d.Redis.Get(ctx, "dictquery:"+key).Bytes()
	if err != nil {
		return nil, err
	}
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, err
	}
	return words, nil
}

// TryAcquireGenerationLock claims configHash for jobID so concurrent
// requests for an identical generation config coalesce onto a single
// in-flight job rather than each spending a solver run. Returns
// acquired=false and the job holding the lock when one already exists.
func (d *Database) TryAcquireGenerationLock(ctx context.Context, configHash, jobID string, ttl time.Duration) (acquired bool, existingJobID string, err error) {
	key := "genlock:" + configHash
	ok, err := d.Redis.SetNX(ctx, key, jobID, ttl).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "", nil
	}
	existing, err := d.Redis.Get(ctx, key).Result()
	if err != nil {
		return false, "", err
	}
	return false, existing, nil
}

// ReleaseGenerationLock frees configHash once its job has completed or
// failed, so a later identical request starts a fresh generation run.
func (d *Database) ReleaseGenerationLock(ctx context.Context, configHash string) error {
	return d.Redis.Del(ctx, "genlock:"+configHash).Err()
}
