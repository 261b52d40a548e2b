package server

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"crewtime/internal/domain"
	"crewtime/internal/events"
	"crewtime/internal/remote"
	"crewtime/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"record not found"`
}

// apiError is the error envelope shared by every endpoint.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error())
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error")
}

type service struct {
	db     *sql.DB
	repo   repo.Repo
	events events.Writer
	auth   AuthConfig
}

// New returns an HTTP handler exposing the crewtime resource API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg)
	}

	svc := service{db: cfg.DB, repo: cfg.Repo, events: cfg.Events, auth: cfg.Auth}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Crewtime API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerLogin(group, svc)
	registerUsers(group, svc)
	registerCollection(group, svc, remote.Projects,
		func(p domain.Project) int64 { return p.ID },
		func(p domain.Project, id int64) domain.Project { p.ID = id; return p })
	registerCollection(group, svc, remote.Tasks,
		func(t domain.Task) int64 { return t.ID },
		func(t domain.Task, id int64) domain.Task { t.ID = id; return t })
	registerCollection(group, svc, remote.Timesheets,
		func(t domain.Timesheet) int64 { return t.ID },
		func(t domain.Timesheet, id int64) domain.Timesheet { t.ID = id; return t })
	registerCollection(group, svc, remote.LeaveRequests,
		func(l domain.LeaveRequest) int64 { return l.ID },
		func(l domain.LeaveRequest, id int64) domain.LeaveRequest { l.ID = id; return l })
	registerCollection(group, svc, remote.Notifications,
		func(n domain.Notification) int64 { return n.ID },
		func(n domain.Notification, id int64) domain.Notification { n.ID = id; return n })
	registerCollection(group, svc, remote.BestEmployees,
		func(b domain.BestEmployee) int64 { return b.ID },
		func(b domain.BestEmployee, id int64) domain.BestEmployee { b.ID = id; return b })
	registerEvents(group, svc)

	return router, nil
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  domain.Actor `json:"user"`
}

func registerLogin(api huma.API, s service) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/login",
		Summary:     "Authenticate and issue a bearer token",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body loginRequest `json:"body"`
	}) (*struct {
		Body loginResponse `json:"body"`
	}, error) {
		email := strings.TrimSpace(input.Body.Email)
		if email == "" || input.Body.Password == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "email and password are required")
		}
		cred, err := s.repo.GetCredential(ctx, email)
		if err != nil {
			return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		}
		if subtle.ConstantTimeCompare([]byte(cred.Password), []byte(input.Body.Password)) != 1 {
			return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		}
		payload, err := s.repo.Get(ctx, remote.Users, cred.UserID)
		if err != nil {
			return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		}
		var user domain.Actor
		if err := json.Unmarshal(payload, &user); err != nil {
			return nil, handleError(err)
		}
		now := s.events.Now
		if now == nil {
			now = time.Now
		}
		token, err := SignToken(s.auth.JWTSecret, user, s.auth.ttl(), now())
		if err != nil {
			return nil, handleError(err)
		}
		if err := s.audit(ctx, events.TypeLogin, remote.Users, user.ID, user.ID, nil); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body loginResponse `json:"body"`
		}{Body: loginResponse{Token: token, User: user}}, nil
	})
}

// audit appends a standalone audit event outside a record mutation.
func (s service) audit(ctx context.Context, evtType, collection string, recordID, actorID int64, payload events.EventPayload) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.events.Append(ctx, tx, evtType, collection, recordID, actorID, payload); err != nil {
		return err
	}
	return tx.Commit()
}

// create stores one record and its audit entry atomically. A zero id asks
// the store to allocate one; client-chosen ids are kept when free.
func (s service) create(ctx context.Context, key string, id int64, actorID int64, marshal func(int64) ([]byte, error)) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	if id == 0 {
		id, err = s.repo.NextID(ctx, tx, key)
		if err != nil {
			return 0, err
		}
	}
	payload, err := marshal(id)
	if err != nil {
		return 0, err
	}
	if err := s.repo.InsertTx(ctx, tx, key, id, payload); err != nil {
		return 0, err
	}
	if err := s.events.Append(ctx, tx, events.TypeCreated, key, id, actorID, nil); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func (s service) update(ctx context.Context, key string, id, actorID int64, payload []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.repo.UpdateTx(ctx, tx, key, id, payload); err != nil {
		return err
	}
	if err := s.events.Append(ctx, tx, events.TypeUpdated, key, id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (s service) delete(ctx context.Context, key string, id, actorID int64, extra func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.repo.DeleteTx(ctx, tx, key, id); err != nil {
		return err
	}
	if extra != nil {
		if err := extra(tx); err != nil {
			return err
		}
	}
	if err := s.events.Append(ctx, tx, events.TypeDeleted, key, id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func listCollection[T any](ctx context.Context, s service, key string) ([]T, error) {
	payloads, err := s.repo.List(ctx, key)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(payloads))
	for _, p := range payloads {
		var item T
		if err := json.Unmarshal(p, &item); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", key, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// registerCollection exposes one synced collection as a flat CRUD surface.
func registerCollection[T any](api huma.API, s service, key string, id func(T) int64, withID func(T, int64) T) {
	huma.Register(api, huma.Operation{
		OperationID: "list-" + key,
		Method:      http.MethodGet,
		Path:        "/" + key,
		Summary:     "List " + key,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []T `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := listCollection[T](ctx, s, key)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []T `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-" + key,
		Method:        http.MethodPost,
		Path:          "/" + key,
		Summary:       "Create " + key + " record",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body T `json:"body"`
	}) (*struct {
		Body T `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		item := input.Body
		stored, err := s.create(ctx, key, id(item), actor.ID, func(assigned int64) ([]byte, error) {
			item = withID(item, assigned)
			return json.Marshal(item)
		})
		if err != nil {
			return nil, handleError(err)
		}
		item = withID(item, stored)
		return &struct {
			Body T `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-" + key,
		Method:      http.MethodPut,
		Path:        "/" + key + "/{id}",
		Summary:     "Replace " + key + " record",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64 `path:"id"`
		Body T     `json:"body"`
	}) (*struct {
		Body T `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		item := withID(input.Body, input.ID)
		payload, err := json.Marshal(item)
		if err != nil {
			return nil, handleError(err)
		}
		if err := s.update(ctx, key, input.ID, actor.ID, payload); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body T `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-" + key,
		Method:      http.MethodDelete,
		Path:        "/" + key + "/{id}",
		Summary:     "Delete " + key + " record",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := s.delete(ctx, key, input.ID, actor.ID, nil); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

// UserRecord is the write shape of the users collection. The password
// rides alongside the profile on create and update, is stored separately,
// and never appears in a read.
type UserRecord struct {
	domain.Actor
	Password string `json:"password,omitempty"`
}

func registerUsers(api huma.API, s service) {
	key := remote.Users

	huma.Register(api, huma.Operation{
		OperationID: "list-" + key,
		Method:      http.MethodGet,
		Path:        "/" + key,
		Summary:     "List users",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Actor `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := listCollection[domain.Actor](ctx, s, key)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Actor `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-" + key,
		Method:        http.MethodPost,
		Path:          "/" + key,
		Summary:       "Create user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body UserRecord `json:"body"`
	}) (*struct {
		Body domain.Actor `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		user := input.Body.Actor
		if strings.TrimSpace(user.Email) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "email is required")
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if user.ID == 0 {
			user.ID, err = s.repo.NextID(ctx, tx, key)
			if err != nil {
				return nil, handleError(err)
			}
		}
		payload, err := json.Marshal(user)
		if err != nil {
			return nil, handleError(err)
		}
		if err := s.repo.InsertTx(ctx, tx, key, user.ID, payload); err != nil {
			return nil, handleError(err)
		}
		if input.Body.Password != "" {
			cred := repo.Credential{UserID: user.ID, Email: user.Email, Password: input.Body.Password}
			if err := s.repo.UpsertCredentialTx(ctx, tx, cred); err != nil {
				return nil, handleError(err)
			}
		}
		if err := s.events.Append(ctx, tx, events.TypeCreated, key, user.ID, actor.ID, nil); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Actor `json:"body"`
		}{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-" + key,
		Method:      http.MethodPut,
		Path:        "/" + key + "/{id}",
		Summary:     "Replace user",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64      `path:"id"`
		Body UserRecord `json:"body"`
	}) (*struct {
		Body domain.Actor `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		user := input.Body.Actor
		user.ID = input.ID
		payload, err := json.Marshal(user)
		if err != nil {
			return nil, handleError(err)
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if err := s.repo.UpdateTx(ctx, tx, key, user.ID, payload); err != nil {
			return nil, handleError(err)
		}
		if input.Body.Password != "" {
			cred := repo.Credential{UserID: user.ID, Email: user.Email, Password: input.Body.Password}
			if err := s.repo.UpsertCredentialTx(ctx, tx, cred); err != nil {
				return nil, handleError(err)
			}
		}
		if err := s.events.Append(ctx, tx, events.TypeUpdated, key, user.ID, actor.ID, nil); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Actor `json:"body"`
		}{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-" + key,
		Method:      http.MethodDelete,
		Path:        "/" + key + "/{id}",
		Summary:     "Delete user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		err := s.delete(ctx, key, input.ID, actor.ID, func(tx *sql.Tx) error {
			return s.repo.DeleteCredentialTx(ctx, tx, input.ID)
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerEvents(api huma.API, s service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit feed",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		After      int64  `query:"after"`
		Limit      int    `query:"limit" default:"100"`
		Collection string `query:"collection"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := s.repo.EventsAfter(ctx, input.Limit, input.After, input.Collection)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
	huma.Register(api, huma.Operation{
		OperationID: "head-events",
		Method:      http.MethodGet,
		Path:        "/events/head",
		Summary:     "Latest audit event id",
	}, func(ctx context.Context, input *struct {
		Collection string `query:"collection"`
	}) (*struct {
		Body domain.EventHead `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		id, err := s.repo.LatestEventID(ctx, input.Collection)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.EventHead `json:"body"`
		}{Body: domain.EventHead{ID: id}}, nil
	})
}
