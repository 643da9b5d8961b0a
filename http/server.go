package http

import (
	"crypto/tls"
	"net/http"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/sirupsen/logrus"

	"selwood.net/tasklock"
)

type Server struct {
	Addr      string
	TLSConfig *tls.Config
	Proxied   bool

	// origins allowed to call the API from a browser; empty means any
	CORSOrigins []string

	UserService      tasklock.UserService
	TodoService      tasklock.TodoService
	ProjectService   tasklock.ProjectService
	ChallengeService tasklock.ChallengeService
	Guard            tasklock.RequestGuard
	Throttle         *SolutionThrottle

	Logger logrus.FieldLogger

	once   sync.Once
	server *http.Server
}

func subrouter(r *mux.Router, prefix string) *mux.Router {
	n := mux.NewRouter()
	r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, n))
	return n
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "tasklock",
		"resources": []string{
			"/api/challenge/{user}",
			"/api/user/{name}",
			"/api/todo/{id}",
			"/api/project/{name}",
		},
	})
}

func (s *Server) init() {
	router := mux.NewRouter()
	apiRouter := subrouter(router, "/api")
	challengeRouter := subrouter(apiRouter, "/challenge")
	userRouter := subrouter(apiRouter, "/user")
	todoRouter := subrouter(apiRouter, "/todo")
	projectRouter := subrouter(apiRouter, "/project")

	apiRouter.Path("/").Methods("GET").HandlerFunc(s.handleIndex)

	newChallengeHandler(s.ChallengeService).BindRoutes(challengeRouter)
	newUserHandler(s.UserService, s.ChallengeService, s.Guard, s.Throttle).BindRoutes(userRouter)
	newTodoHandler(s.TodoService, s.Guard, s.Throttle).BindRoutes(todoRouter)
	newProjectHandler(s.ProjectService, s.Guard, s.Throttle).BindRoutes(projectRouter)

	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"PUT", "GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Origin", "Accept", "Content-Type", "X-Requested-With"}),
	)

	stack := alice.New(bufferResponses, cors)
	if s.Proxied {
		stack = stack.Append(handlers.ProxyHeaders)
	}

	s.server = &http.Server{
		Addr:      s.Addr,
		Handler:   stack.Then(router),
		TLSConfig: s.TLSConfig,
	}
}

// Handler returns the fully wired route stack without binding a listener.
func (s *Server) Handler() http.Handler {
	s.once.Do(s.init)
	return s.server.Handler
}

func (s *Server) Listen() error {
	s.once.Do(s.init)

	if s.Logger != nil {
		s.Logger.WithField("addr", s.Addr).Info("listening")
	}

	if s.TLSConfig != nil {
		return s.server.ListenAndServeTLS("", "")
	}

	return s.server.ListenAndServe()
}
