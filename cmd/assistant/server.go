package main

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/chat"
	"github.com/goliatone/go-assistant/ui"
	"github.com/goliatone/go-assistant/workflow"
	"github.com/goliatone/go-errors"
)

const defaultPollTimeout = 25 * time.Second

type server struct {
	app         *app
	pollTimeout time.Duration
	accessLog   io.Writer
}

// sessionView is the JSON form of a session.
type sessionView struct {
	ID         string              `json:"id"`
	State      workflow.State      `json:"state"`
	Components map[string]*ui.Node `json:"components,omitempty"`
}

type advanceView struct {
	Outcome workflow.Outcome `json:"outcome"`
	Cursor  int              `json:"cursor"`
}

type promptResponse struct {
	Resolution workflow.Resolution `json:"resolution"`
	Advance    *advanceView        `json:"advance,omitempty"`
	Session    sessionView         `json:"session"`
}

type actionResponse struct {
	Outcome workflow.ActionOutcome `json:"outcome"`
	Advance *advanceView           `json:"advance,omitempty"`
	Session sessionView            `json:"session"`
}

type createRequest struct {
	Option string `json:"option"`
}

type formRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type confirmRequest struct {
	MessageID string `json:"message_id"`
}

func newServer(a *app, accessLog io.Writer) *fiber.App {
	s := &server{app: a, pollTimeout: defaultPollTimeout, accessLog: accessLog}
	return s.routes()
}

func (s *server) routes() *fiber.App {
	f := fiber.New(fiber.Config{
		AppName:               "assistant",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	f.Use(recover.New())
	f.Use(cors.New())
	if s.accessLog != nil {
		f.Use(fiberlogger.New(fiberlogger.Config{Output: s.accessLog}))
	}

	collab := s.app.collab
	if collab == nil {
		collab = chat.Unavailable
	}

	api := f.Group("/api")
	api.Get("/health", s.health)
	api.Get("/scripts", s.listScripts)
	api.Get("/sessions", s.listSessions)
	api.Post("/sessions", s.createSession)
	api.Get("/sessions/:id", s.getSession)
	api.Delete("/sessions/:id", s.deleteSession)
	api.Post("/sessions/:id/prompts", s.submitPrompt)
	api.Post("/sessions/:id/continue", s.continueSession)
	api.Post("/sessions/:id/actions", s.triggerAction)
	api.Post("/sessions/:id/confirm", s.confirm)
	api.Post("/sessions/:id/form", s.setFormValue)
	api.Post("/sessions/:id/end", s.endSession)
	api.Get("/sessions/:id/events", s.waitEvents)
	api.Post("/chat", chat.Handler(collab, s.app.logger))
	api.Get("/databases", s.listDatabases)
	api.Get("/databases/:id", s.getDatabase)
	api.Get("/notifications", s.listNotifications)
	api.Get("/activity", s.listActivity)
	return f
}

func (s *server) view(session *workflow.Session) sessionView {
	return sessionView{
		ID:         session.ID(),
		State:      session.Snapshot(),
		Components: session.RenderAll(),
	}
}

func (s *server) session(c *fiber.Ctx) (*workflow.Session, error) {
	return s.app.manager.Get(c.Params("id"))
}

func (s *server) health(c *fiber.Ctx) error {
	body := fiber.Map{"status": "ok", "sessions": s.app.manager.Len()}
	if s.app.policy != nil {
		body["collaborator"] = s.app.policy.Stats()
	}
	if s.app.scheduler != nil {
		body["jobs"] = s.app.scheduler.Jobs()
	}
	return c.JSON(body)
}

func (s *server) listScripts(c *fiber.Ctx) error {
	type scriptInfo struct {
		ID     string `json:"id"`
		Title  string `json:"title,omitempty"`
		Option string `json:"option,omitempty"`
		Steps  int    `json:"steps"`
	}
	out := []scriptInfo{}
	for _, name := range s.app.scripts.Names() {
		sc, err := s.app.scripts.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, scriptInfo{ID: sc.ID, Title: sc.Title, Option: sc.Option, Steps: sc.Len()})
	}
	return c.JSON(out)
}

func (s *server) listSessions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sessions": s.app.manager.IDs()})
}

func (s *server) createSession(c *fiber.Ctx) error {
	var req createRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(err)
		}
	}
	session, err := s.app.manager.Create(c.UserContext(), strings.TrimSpace(req.Option))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s.view(session))
}

func (s *server) getSession(c *fiber.Ctx) error {
	session, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(s.view(session))
}

func (s *server) deleteSession(c *fiber.Ctx) error {
	if err := s.app.manager.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *server) submitPrompt(c *fiber.Ctx) error {
	session, err := s.session(c)
	if err != nil {
		return err
	}
	var p workflow.Prompt
	if err := c.BodyParser(&p); err != nil {
		return badBody(err)
	}
	res, err := session.Submit(c.UserContext(), p)
	if err != nil {
		return err
	}
	return c.JSON(promptResponse{
		Resolution: res,
		Advance:    advanceOf(res.Advance),
		Session:    s.view(session),
	})
}

func (s *server) continueSession(c *fiber.Ctx) error {
	session, err := s.session(c)
	if err != nil {
		return err
	}
	res, err := session.Continue(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"advance": advanceOf(res),
		"session": s.view(session),
	})
}

func (s *server) triggerAction(c *fiber.Ctx) error {
	session, err := s.session(c)
	if err != nil {
		return err
	}
	var req workflow.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	out, err := session.Action(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(actionResponse{Outcome: out, Advance: advanceOf(out.Advance), Session: s.view(session)})
}

func (s *server) confirm(c *fiber.Ctx) error {
	session, err := s.session(c)
	if err != nil {
		return err
	}
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	out, err := session.Confirm(c.UserContext(), req.MessageID)
	if err != nil {
		return err
	}
	return c.JSON(actionResponse{Outcome: out, Advance: advanceOf(out.Advance), Session: s.view(session)})
}

func (s *server) setFormValue(c *fiber.Ctx) error {
	session, err := s.session(c)
	if err != nil {
		return err
	}
	var req formRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	if strings.TrimSpace(req.Field) == "" {
		return errors.New("form field is required", errors.CategoryBadInput).
			WithTextCode(workflow.ErrCodeInvalidAction)
	}
	session.SetFormValue(req.Field, req.Value)
	return c.JSON(fiber.Map{"form": session.Store().FormValues()})
}

func (s *server) endSession(c *fiber.Ctx) error {
	session, err := s.session(c)
	if err != nil {
		return err
	}
	session.End()
	session.Open()
	return c.JSON(s.view(session))
}

// waitEvents long-polls the feed for a version newer than ?after.
func (s *server) waitEvents(c *fiber.Ctx) error {
	session, err := s.session(c)
	if err != nil {
		return err
	}
	if s.app.feed == nil {
		return c.SendStatus(fiber.StatusNotImplemented)
	}
	after := uint64(c.QueryInt("after", 0))
	timeout := s.pollTimeout
	if d, err := time.ParseDuration(c.Query("timeout")); err == nil && d > 0 && d < timeout {
		timeout = d
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
	defer cancel()
	env, err := s.app.feed.Wait(ctx, session.ID(), after)
	if err != nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(env)
}

func (s *server) listDatabases(c *fiber.Ctx) error {
	return c.JSON(s.app.apps.Databases())
}

func (s *server) getDatabase(c *fiber.Ctx) error {
	db, ok := s.app.apps.Database(c.Params("id"))
	if !ok {
		return errors.New("database not found", errors.CategoryNotFound).
			WithMetadata(map[string]any{"id": c.Params("id")})
	}
	return c.JSON(db)
}

func (s *server) listNotifications(c *fiber.Ctx) error {
	return c.JSON(s.app.apps.Notifications())
}

func (s *server) listActivity(c *fiber.Ctx) error {
	return c.JSON(s.app.apps.Activities())
}

func (s *server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errors.New(fe.Message, errors.CategoryRouting).WithCode(fe.Code).ToErrorResponse(false, nil))
	}

	status := statusFor(err)
	var ge *errors.Error
	if errors.As(err, &ge) {
		ge = ge.Clone()
	} else {
		ge = errors.Wrap(err, errors.CategoryInternal, "internal error")
	}
	ge = ge.WithCode(status)
	if status >= fiber.StatusInternalServerError {
		s.app.logger.Error("request failed method=%s path=%s err=%v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(ge.ToErrorResponse(false, nil))
}

var statusByCode = []struct {
	code   string
	status int
}{
	{assistant.ErrCodeSessionNotFound, fiber.StatusNotFound},
	{workflow.ErrCodeMessageNotFound, fiber.StatusNotFound},
	{assistant.ErrCodeScriptNotFound, fiber.StatusNotFound},
	{workflow.ErrCodeEmptyPrompt, fiber.StatusBadRequest},
	{workflow.ErrCodeInvalidAction, fiber.StatusBadRequest},
	{workflow.ErrCodeNotConfirmable, fiber.StatusBadRequest},
	{workflow.ErrCodeAlreadyConfirmed, fiber.StatusConflict},
	{assistant.ErrCodeWorkflowNotActive, fiber.StatusConflict},
	{assistant.ErrCodeStoreClosed, fiber.StatusConflict},
	{assistant.ErrCodeCollaboratorUnavailable, fiber.StatusServiceUnavailable},
}

func statusFor(err error) int {
	for _, m := range statusByCode {
		if assistant.HasCode(err, m.code) {
			return m.status
		}
	}
	switch {
	case errors.IsCategory(err, errors.CategoryNotFound):
		return fiber.StatusNotFound
	case errors.IsCategory(err, errors.CategoryBadInput), errors.IsValidation(err):
		return fiber.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryConflict):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func badBody(err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, "invalid JSON body")
}

func advanceOf(res *workflow.Result) *advanceView {
	if res == nil {
		return nil
	}
	return &advanceView{Outcome: res.Outcome, Cursor: res.Cursor}
}
