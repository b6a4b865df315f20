// Package apitest runs an in-memory stand-in for the task-manager REST API so
// the client stack can be exercised end to end in tests.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/tgienger/taskmgr/internal/models"
)

type user struct {
	name string
	hash []byte
}

type project struct {
	owner       string
	id          int64
	title       string
	description string
}

// Server is a fake backend. All exported methods are safe for concurrent use.
type Server struct {
	*httptest.Server
	echo   *echo.Echo
	secret []byte

	mu         sync.Mutex
	generation int
	nextID     int64
	users      map[string]user
	projects   map[int64]*project
	tasks      map[int64]*models.Task
	calls      map[string]int
	failures   map[string]int
	blocks     map[string]chan struct{}
}

// New starts a fake backend that is closed when the test ends
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:   []byte("apitest-secret"),
		users:    map[string]user{},
		projects: map[int64]*project{},
		tasks:    map[int64]*models.Task{},
		calls:    map[string]int{},
		failures: map[string]int{},
		blocks:   map[string]chan struct{}{},
	}
	s.echo = s.routes()
	s.Server = httptest.NewServer(s.echo)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.track)

	e.POST("/auth/register", s.register)
	e.POST("/auth/login", s.login)

	api := e.Group("/api", s.requireToken)
	api.GET("/projects", s.listProjects)
	api.POST("/projects", s.createProject)
	api.GET("/projects/:id", s.getProject)
	api.PUT("/projects/:id", s.updateProject)
	api.DELETE("/projects/:id", s.deleteProject)
	api.GET("/projects/:id/progress", s.getProgress)
	api.GET("/projects/:id/tasks", s.listTasks)
	api.POST("/projects/:id/tasks", s.createTask)
	api.GET("/projects/:id/tasks/:taskId", s.getTask)
	api.PUT("/projects/:id/tasks/:taskId", s.updateTask)
	api.DELETE("/projects/:id/tasks/:taskId", s.deleteTask)
	api.PATCH("/projects/:id/tasks/:taskId/complete", s.completeTask)
	return e
}

// Route keys look like "PATCH /api/projects/:id/tasks/:taskId/complete"
func routeKey(method, route string) string {
	return method + " " + route
}

// track counts calls per route and applies injected failures and blocks
func (s *Server) track(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := routeKey(c.Request().Method, c.Path())
		s.mu.Lock()
		s.calls[key]++
		status, fail := s.failures[key]
		if fail {
			delete(s.failures, key)
		}
		block := s.blocks[key]
		s.mu.Unlock()

		if block != nil {
			select {
			case <-block:
			case <-c.Request().Context().Done():
				return nil
			}
		}
		if fail {
			return c.JSON(status, echo.Map{"message": http.StatusText(status)})
		}
		return next(c)
	}
}

// Calls returns how many requests hit the route
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[routeKey(method, route)]
}

// FailNext makes the next request on route answer with status
func (s *Server) FailNext(method, route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, route)] = status
}

// Block holds requests on route until the returned release func is called
func (s *Server) Block(method, route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.blocks[routeKey(method, route)] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.blocks, routeKey(method, route))
			s.mu.Unlock()
			close(ch)
		})
	}
}

// ExpireTokens invalidates every token issued so far
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// AddUser registers an account and returns a valid token for it
func (s *Server) AddUser(name, email, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	s.users[email] = user{name: name, hash: hash}
	s.mu.Unlock()
	token, err := s.issueToken(email)
	if err != nil {
		panic(err)
	}
	return token
}

// SeedProject stores a project for owner directly
func (s *Server) SeedProject(owner, title, description string) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := &project{owner: owner, id: s.nextID, title: title, description: description}
	s.projects[p.id] = p
	return s.projectView(p)
}

// SeedTask stores a task directly
func (s *Server) SeedTask(projectID int64, title string, due models.Date, completed bool) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &models.Task{ID: s.nextID, ProjectID: projectID, Title: title, DueDate: due, Completed: completed}
	s.tasks[t.ID] = t
	return *t
}

// Project returns the server-side view of a project, aggregates included
func (s *Server) Project(id int64) (models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, false
	}
	return s.projectView(p), true
}

type tokenClaims struct {
	jwt.RegisteredClaims
}

func (s *Server) issueToken(email string) (string, error) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	now := time.Now()
	claims := tokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   email,
		ID:        strconv.Itoa(gen),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

const ownerKey = "owner"

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "missing token"})
		}
		claims := &tokenClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
		}
		s.mu.Lock()
		current := strconv.Itoa(s.generation) == claims.ID
		s.mu.Unlock()
		if !current {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "token expired"})
		}
		c.Set(ownerKey, claims.Subject)
		return next(c)
	}
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(c echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "email and password are required"})
	}
	s.mu.Lock()
	_, exists := s.users[req.Email]
	s.mu.Unlock()
	if exists {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "message": "email already registered"})
	}
	token := s.AddUser(req.Name, req.Email, req.Password)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": token})
}

func (s *Server) login(c echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid email or password"})
	}
	token, err := s.issueToken(req.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": token})
}

// projectView must be called with s.mu held
func (s *Server) projectView(p *project) models.Project {
	total, done := 0, 0
	for _, t := range s.tasks {
		if t.ProjectID != p.id {
			continue
		}
		total++
		if t.Completed {
			done++
		}
	}
	return models.Project{ID: p.id, Title: p.title, Description: p.description}.WithCounts(total, done)
}

// ownedProject must be called with s.mu held
func (s *Server) ownedProject(c echo.Context) (*project, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid project id"})
	}
	p, ok := s.projects[id]
	if !ok || p.owner != c.Get(ownerKey) {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"message": "project not found"})
	}
	return p, nil
}

// ownedTask must be called with s.mu held
func (s *Server) ownedTask(c echo.Context) (*models.Task, error) {
	p, err := s.ownedProject(c)
	if p == nil {
		return nil, err
	}
	id, err := strconv.ParseInt(c.Param("taskId"), 10, 64)
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid task id"})
	}
	t, ok := s.tasks[id]
	if !ok || t.ProjectID != p.id {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"message": "task not found"})
	}
	return t, nil
}

type projectBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) listProjects(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Project{}
	for _, p := range s.projects {
		if p.owner == c.Get(ownerKey) {
			out = append(out, s.projectView(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createProject(c echo.Context) error {
	var req projectBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "title is required"})
	}
	owner, _ := c.Get(ownerKey).(string)
	return c.JSON(http.StatusCreated, s.SeedProject(owner, req.Title, req.Description))
}

func (s *Server) getProject(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownedProject(c)
	if p == nil {
		return err
	}
	return c.JSON(http.StatusOK, s.projectView(p))
}

func (s *Server) updateProject(c echo.Context) error {
	var req projectBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownedProject(c)
	if p == nil {
		return err
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "title is required"})
	}
	p.title, p.description = req.Title, req.Description
	return c.JSON(http.StatusOK, s.projectView(p))
}

func (s *Server) deleteProject(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownedProject(c)
	if p == nil {
		return err
	}
	for id, t := range s.tasks {
		if t.ProjectID == p.id {
			delete(s.tasks, id)
		}
	}
	delete(s.projects, p.id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getProgress(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownedProject(c)
	if p == nil {
		return err
	}
	v := s.projectView(p)
	return c.JSON(http.StatusOK, models.Progress{
		ProjectID:          v.ID,
		TotalTasks:         v.TotalTasks,
		CompletedTasks:     v.CompletedTasks,
		ProgressPercentage: v.ProgressPercentage,
	})
}

type taskBody struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	DueDate     models.Date `json:"dueDate"`
}

func (s *Server) listTasks(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownedProject(c)
	if p == nil {
		return err
	}
	out := []models.Task{}
	for _, t := range s.tasks {
		if t.ProjectID == p.id {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createTask(c echo.Context) error {
	var req taskBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	if strings.TrimSpace(req.Title) == "" || req.DueDate.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "title and due date are required"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownedProject(c)
	if p == nil {
		return err
	}
	s.nextID++
	t := &models.Task{ID: s.nextID, ProjectID: p.id, Title: req.Title, Description: req.Description, DueDate: req.DueDate}
	s.tasks[t.ID] = t
	return c.JSON(http.StatusCreated, *t)
}

func (s *Server) getTask(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.ownedTask(c)
	if t == nil {
		return err
	}
	return c.JSON(http.StatusOK, *t)
}

func (s *Server) updateTask(c echo.Context) error {
	var req taskBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.ownedTask(c)
	if t == nil {
		return err
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "title is required"})
	}
	t.Title, t.Description = req.Title, req.Description
	if !req.DueDate.IsZero() {
		t.DueDate = req.DueDate
	}
	return c.JSON(http.StatusOK, *t)
}

func (s *Server) completeTask(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.ownedTask(c)
	if t == nil {
		return err
	}
	t.Completed = true
	return c.JSON(http.StatusOK, *t)
}

func (s *Server) deleteTask(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.ownedTask(c)
	if t == nil {
		return err
	}
	delete(s.tasks, t.ID)
	return c.NoContent(http.StatusNoContent)
}
