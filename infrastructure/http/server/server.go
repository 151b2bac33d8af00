// Package server is the HTTP/JSON boundary of the desk.
// It extracts credentials and payloads from requests and maps failures to status codes;
// every rule lives in the services.
package server

import (
	"chat-desk/auth"
	"chat-desk/contract"
	"chat-desk/services"
	"log/slog"
	"net/http"
	"time"
)

const (
	SessionCookie        = "chatdesk_session"
	OperatorSecretHeader = "X-Operator-Secret"
)

type Config struct {
	MaxContentLength int64
	LimitMessages    int
	SessionDuration  time.Duration
	SecureCookie     bool
	UploadDir        string
}

type Server struct {
	identity    services.IIdentityService
	router      services.IChannelRouter
	desk        services.IDeskService
	gate        *auth.Gate
	attachments contract.IAttachmentStore
	cfg         Config
	log         *slog.Logger
}

func NewServer(identity services.IIdentityService, router services.IChannelRouter, desk services.IDeskService,
	gate *auth.Gate, attachments contract.IAttachmentStore, cfg Config, log *slog.Logger) *Server {
	return &Server{
		identity:    identity,
		router:      router,
		desk:        desk,
		gate:        gate,
		attachments: attachments,
		cfg:         cfg,
		log:         log,
	}
}

// Routes returns the handler serving every endpoint of the desk.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/messages", s.PostMessage)
	mux.HandleFunc("GET /api/messages", s.GetMessages)

	mux.HandleFunc("GET /api/operator/messages", s.GetOperatorMessages)
	mux.HandleFunc("POST /api/operator/messages", s.PostOperatorMessage)
	mux.HandleFunc("GET /api/operator/users", s.GetUsers)
	mux.HandleFunc("GET /api/operator/search", s.Search)

	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadDir))))

	return mux
}
