package server

import (
	"chat-desk/auth"
	"chat-desk/domain"
	"chat-desk/errors"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// PostMessage records a message from an anonymous visitor and, on the assistant channel,
// answers with the automated reply. The session cookie is set or refreshed on every call.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.writeError(w, err)
		return
	}

	session, err := s.identity.Resolve(r.Context(), sessionToken(r), ClientAddress(r), r.UserAgent())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.setSessionCookie(w, session.Token)

	principal := domain.Principal{Tier: domain.TierAnonymous, IdentityID: session.Identity.ID}
	if err = s.gate.CanAppend(principal, session.Identity.ID, domain.RoleUser); err != nil {
		s.writeError(w, err)
		return
	}

	channel := r.FormValue("channel")
	if channel == "" {
		channel = string(domain.ChannelAssistant)
	}
	// The command is checked with the upload's name standing in for its reference,
	// so a rejected request never leaves a file behind.
	pending := uploadName(r)
	cmd := domain.ExchangeCommand{
		OwnerID:       session.Identity.ID,
		Channel:       domain.Channel(channel),
		ContentKind:   contentKind(r, pending),
		Content:       r.FormValue("content"),
		AttachmentRef: pending,
	}
	if err = auth.ValidateExchange(cmd); err != nil {
		s.writeError(w, err)
		return
	}
	if cmd.AttachmentRef, err = s.storeUpload(r, domain.TagUsers); err != nil {
		s.writeError(w, err)
		return
	}

	outcome, err := s.router.Exchange(r.Context(), cmd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exchangeResponse{
		Status:     "success",
		UserID:     session.Identity.ID,
		MessageID:  outcome.MessageID,
		ReplyID:    outcome.ReplyID,
		AIResponse: outcome.Reply,
	})
}

// GetMessages returns the caller's own conversation. A caller without a session has none yet.
func (s *Server) GetMessages(w http.ResponseWriter, r *http.Request) {
	principal, err := s.gate.Authorize(auth.Credentials{Scope: auth.ScopeAnonymous, SessionToken: sessionToken(r)})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if principal.IdentityID == 0 {
		writeJSON(w, http.StatusOK, messagesResponse{Status: "success", Messages: []messageResponse{}})
		return
	}
	limit, err := s.limit(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	messages, err := s.desk.Messages(principal, domain.ListMessagesCommand{Limit: limit})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Status: "success", Messages: toMessageResponses(messages)})
}

// GetOperatorMessages returns the feed across every conversation, or one conversation
// when user_id is given.
func (s *Server) GetOperatorMessages(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.operator(w, r)
	if !ok {
		return
	}
	ownerID, err := optionalID(r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, err := s.limit(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	messages, err := s.desk.Messages(principal, domain.ListMessagesCommand{OwnerID: ownerID, Limit: limit})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Status: "success", Messages: toMessageResponses(messages)})
}

// PostOperatorMessage appends an operator reply to the conversation named by user_id.
func (s *Server) PostOperatorMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.writeError(w, err)
		return
	}
	principal, ok := s.operator(w, r)
	if !ok {
		return
	}
	ownerID, err := optionalID(r.FormValue("user_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ownerID == nil {
		s.writeError(w, fmt.Errorf("%w: user_id is required", errors.ErrValidation))
		return
	}
	pending := uploadName(r)
	cmd := domain.ReplyCommand{
		OwnerID:       *ownerID,
		ContentKind:   contentKind(r, pending),
		Content:       r.FormValue("content"),
		AttachmentRef: pending,
	}
	if err = s.desk.CheckReply(principal, cmd); err != nil {
		s.writeError(w, err)
		return
	}
	if cmd.AttachmentRef, err = s.storeUpload(r, domain.TagOperator); err != nil {
		s.writeError(w, err)
		return
	}
	message, err := s.desk.Reply(r.Context(), principal, cmd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replyResponse{Status: "success", MessageID: message.ID})
}

func (s *Server) GetUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.operator(w, r)
	if !ok {
		return
	}
	identities, err := s.desk.Identities(principal)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Status: "success", Users: toIdentityResponses(identities)})
}

// Search runs q against the full-text index, e.g. "refund --user 3 --limit 5".
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.operator(w, r)
	if !ok {
		return
	}
	hits, err := s.desk.Search(r.Context(), principal, r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Status: "success", Hits: toHitResponses(hits)})
}

// operator authorizes the request as operator tier or writes the failure.
// The secret comes from the X-Operator-Secret header, or the password parameter.
func (s *Server) operator(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	secret := r.Header.Get(OperatorSecretHeader)
	if secret == "" {
		secret = r.FormValue("password")
	}
	principal, err := s.gate.Authorize(auth.Credentials{Scope: auth.ScopeOperator, OperatorSecret: secret})
	if err != nil {
		s.writeError(w, err)
		return domain.Principal{}, false
	}
	return principal, true
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxContentLength)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(s.cfg.MaxContentLength)
	} else {
		err = r.ParseForm()
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", errors.ErrContentTooLarge, tooLarge.Limit)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

// uploadName is the client-side name of the "file" part, or "" when none was sent.
func uploadName(r *http.Request) string {
	if r.MultipartForm == nil || len(r.MultipartForm.File["file"]) == 0 {
		return ""
	}
	return r.MultipartForm.File["file"][0].Filename
}

// storeUpload hands the "file" part, if any, to the attachment store and returns its reference.
func (s *Server) storeUpload(r *http.Request, tag domain.AttachmentTag) (string, error) {
	if uploadName(r) == "" {
		return "", nil
	}
	header := r.MultipartForm.File["file"][0]
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	attachment, err := s.attachments.Store(r.Context(), tag, header.Filename, data)
	if err != nil {
		return "", err
	}
	return attachment.Ref, nil
}

func (s *Server) limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return s.cfg.LimitMessages, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit %q", errors.ErrValidation, raw)
	}
	return limit, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "error", err)
	} else {
		s.log.Debug("Request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Status: "error", Failure: errors.ToFailure(err)})
}

// contentKind reads content_kind, defaulting to attachment when only a file was sent.
func contentKind(r *http.Request, upload string) domain.ContentKind {
	if kind := r.FormValue("content_kind"); kind != "" {
		return domain.ContentKind(kind)
	}
	if upload != "" && r.FormValue("content") == "" {
		return domain.KindAttachment
	}
	return domain.KindText
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func optionalID(raw string) (*uint64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("%w: user_id %q", errors.ErrValidation, raw)
	}
	return &id, nil
}

// ClientAddress is the first X-Forwarded-For entry, else X-Real-IP, else the remote host.
func ClientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
