package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/crosswordsmith/rebusgen/internal/auth"
	"github.com/crosswordsmith/rebusgen/internal/db"
	"github.com/crosswordsmith/rebusgen/internal/middleware"
	"github.com/crosswordsmith/rebusgen/internal/models"
	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/puzzle"
	"github.com/crosswordsmith/rebusgen/pkg/theme"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// generationLockTTL bounds how long a config hash stays claimed; it
// must comfortably exceed the solver timeout so a slow run isn't
// overtaken by a duplicate request before it completes.
const generationLockTTL = 2 * time.Minute

type Handlers struct {
	db          *db.Database
	authService *auth.AuthService
	idx         *dictionary.Index
	emitter     puzzle.ClueEmitter
	hub         HubInterface
}

// HubInterface is the subset of *realtime.Hub handlers depend on, kept
// as an interface so tests can substitute a fake.
type HubInterface interface {
	PublishProgress(jobID string, record puzzle.AttemptRecord)
}

func NewHandlers(database *db.Database, authService *auth.AuthService, idx *dictionary.Index, emitter puzzle.ClueEmitter) *Handlers {
	return &Handlers{
		db:          database,
		authService: authService,
		idx:         idx,
		emitter:     emitter,
	}
}

// SetHub sets the WebSocket hub for the handlers.
func (h *Handlers) SetHub(hub HubInterface) {
	h.hub = hub
}

// Auth Handlers

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"displayName" binding:"required,min=2,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type GuestRequest struct {
	DisplayName string `json:"displayName" binding:"omitempty,max=50"`
}

type AuthResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existingUser, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if existingUser != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hashedPassword, err := h.authService.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user := &models.User{
		ID:          uuid.New().String(),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    hashedPassword,
		IsGuest:     false,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := h.db.CreateUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Email, user.DisplayName, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{User: *user, Token: token})
}

func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !h.authService.CheckPassword(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Email, user.DisplayName, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{User: *user, Token: token})
}

func (h *Handlers) Guest(c *gin.Context) {
	var req GuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	guestID := uuid.New().String()

	displayName := req.DisplayName
	if displayName == "" {
		displayName = "Guest_" + guestID[:8]
	}

	user := &models.User{
		ID:          guestID,
		Email:       "guest_" + guestID[:8] + "@rebusgen.local",
		DisplayName: displayName,
		IsGuest:     true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := h.db.CreateUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create guest user"})
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Email, user.DisplayName, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{User: *user, Token: token})
}

func (h *Handlers) GetMe(c *gin.Context) {
	claims := middleware.GetAuthUser(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	user, err := h.db.GetUserByID(claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Generation job handlers: POST /v1/puzzles and GET /v1/puzzles/:id.
// GET /v1/puzzles/:id/events is served by realtime.ServeWs, wired in
// cmd/server.

// CreatePuzzleRequest mirrors puzzle.Config with JSON tags fit for the
// wire, plus the caller-supplied theme word list (puzzle.ThemeSource is
// a Go closure and cannot cross the API boundary directly).
type CreatePuzzleRequest struct {
	Height           int      `json:"height" binding:"required,min=3"`
	Width            int      `json:"width" binding:"required,min=3"`
	Tier             string   `json:"tier" binding:"required,oneof=easy medium hard"`
	Seed             int64    `json:"seed"`
	CompletionTarget float64  `json:"completionTarget"`
	MaxAttempts      int      `json:"maxAttempts"`
	SolverTimeoutMs  int      `json:"solverTimeoutMs"`
	SolverWorkers    int      `json:"solverWorkers"`
	AllowPhase2      bool     `json:"allowPhase2"`
	WordsOnlyMode    bool     `json:"wordsOnlyMode"`
	Title            string   `json:"title"`
	Author           string   `json:"author"`
	Theme            string   `json:"theme"`
	ThemeWords       []string `json:"themeWords"`
}

func parseTier(s string) dictionary.Tier {
	switch s {
	case "easy":
		return dictionary.Easy
	case "hard":
		return dictionary.Hard
	default:
		return dictionary.Medium
	}
}

func (req CreatePuzzleRequest) toConfig() puzzle.Config {
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	workers := req.SolverWorkers
	if workers <= 0 {
		workers = 4
	}
	timeout := time.Duration(req.SolverTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	completionTarget := req.CompletionTarget
	if completionTarget <= 0 {
		completionTarget = 1
	}

	return puzzle.Config{
		Height:           req.Height,
		Width:            req.Width,
		Tier:             parseTier(req.Tier),
		Seed:             req.Seed,
		CompletionTarget: completionTarget,
		MaxAttempts:      maxAttempts,
		SolverTimeout:    timeout,
		SolverWorkers:    workers,
		AllowPhase2:      req.AllowPhase2,
		WordsOnlyMode:    req.WordsOnlyMode,
		Title:            req.Title,
		Author:           req.Author,
		Theme:            req.Theme,
	}
}

// CreatePuzzle enqueues a generation job and runs the orchestrator in
// the background; the caller polls GetPuzzleJob or subscribes to
// GET /v1/puzzles/:id/events for progress.
func (h *Handlers) CreatePuzzle(c *gin.Context) {
	claims := middleware.GetAuthUser(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req CreatePuzzleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := req.toConfig()
	cfgJSON, err := json.Marshal(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode config"})
		return
	}

	jobID := uuid.New().String()
	configHash := configRequestHash(cfgJSON)

	if acquired, existingJobID, lockErr := h.db.TryAcquireGenerationLock(c.Request.Context(), configHash, jobID, generationLockTTL); lockErr == nil && !acquired {
		if existing, err := h.db.GetGenerationJob(existingJobID); err == nil && existing != nil {
			c.JSON(http.StatusAccepted, existing)
			return
		}
	}

	job := &models.GenerationJob{
		ID:         jobID,
		UserID:     claims.UserID,
		Status:     models.JobQueued,
		ConfigJSON: cfgJSON,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := h.db.CreateGenerationJob(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	themeWords := make([]theme.Entry, len(req.ThemeWords))
	for i, w := range req.ThemeWords {
		themeWords[i] = theme.Entry{Word: w, Source: "user"}
	}

	go h.runGenerationJob(job.ID, configHash, cfg, themeWords)

	c.JSON(http.StatusAccepted, job)
}

// configRequestHash fingerprints a generation request's JSON encoding
// (the bound CreatePuzzleRequest re-marshaled, so body whitespace and
// field order do not matter) so identical concurrent requests, including
// seed, can be coalesced via TryAcquireGenerationLock.
func configRequestHash(cfgJSON []byte) string {
	sum := sha256.Sum256(cfgJSON)
	return hex.EncodeToString(sum[:])
}

func (h *Handlers) runGenerationJob(jobID, configHash string, cfg puzzle.Config, themeWords []theme.Entry) {
	ctx := context.Background()
	defer h.db.ReleaseGenerationLock(ctx, configHash)

	h.db.UpdateGenerationJobProgress(jobID, models.JobRunning, 0)

	gen := puzzle.NewGenerator(h.idx, h.emitter)
	result, err := gen.GeneratePuzzle(ctx, cfg, func() []theme.Entry { return themeWords })
	if err != nil {
		log.Printf("generation job %s failed: %v", jobID, err)
		if h.hub != nil {
			if genErr, ok := asGenerationError(err); ok {
				for _, rec := range genErr.Trace {
					h.hub.PublishProgress(jobID, rec)
				}
			}
		}
		h.db.FailGenerationJob(jobID, err.Error())
		return
	}

	puzzleID := uuid.New().String()
	modelsPuzzle := puzzle.ToModelsPuzzle(puzzleID, result)
	modelsPuzzle.CreatedAt = time.Now()
	if err := h.db.CreatePuzzle(modelsPuzzle); err != nil {
		log.Printf("generation job %s: failed to persist puzzle: %v", jobID, err)
		h.db.FailGenerationJob(jobID, "failed to persist sealed puzzle")
		return
	}

	h.db.CompleteGenerationJob(jobID, puzzleID)
}

func asGenerationError(err error) (*puzzle.GenerationError, bool) {
	genErr, ok := err.(*puzzle.GenerationError)
	return genErr, ok
}

// GetPuzzleJob returns a job's status, and the sealed puzzle once it
// has succeeded.
func (h *Handlers) GetPuzzleJob(c *gin.Context) {
	id := c.Param("id")
	job, err := h.db.GetGenerationJob(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	resp := gin.H{"job": job}
	if job.PuzzleID != nil {
		p, err := h.db.GetPuzzleByID(*job.PuzzleID)
		if err == nil && p != nil {
			resp["puzzle"] = p
		}
	}

	c.JSON(http.StatusOK, resp)
}
