// Package api serves the finance records and account flows over REST.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/guileen/finledger/auth"
	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/store"
	"github.com/guileen/finledger/tableview"
	"github.com/guileen/finledger/types"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type RESTHandler struct {
	records store.RecordStore
	auth    *auth.Service
}

func NewRESTHandler(records store.RecordStore, authService *auth.Service) *RESTHandler {
	return &RESTHandler{
		records: records,
		auth:    authService,
	}
}

func (h *RESTHandler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", h.Register)
		r.Post("/validate", h.Login)
		r.Post("/verify", h.Verify)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
	})

	r.Route("/api/{type}", func(r chi.Router) {
		r.Use(h.RequireAuth, resolveRecordType)
		r.Get("/", h.ListRecords)
		r.Post("/", h.InsertRecord)
		r.Get("/view", h.ViewRecords)
		r.Get("/schema", h.GetSchema)
	})
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *RESTHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "ok", nil)
}

func (h *RESTHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.auth.Register(r.Context(), req.Email, req.Password); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusCreated, "registered, check your e-mail for the verification code", nil)
}

func (h *RESTHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusOK, "", session)
}

func (h *RESTHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	session, err := h.auth.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusOK, "e-mail verified", session)
}

func (h *RESTHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusOK, "a reset code was sent to your e-mail", nil)
}

func (h *RESTHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusOK, "password updated", nil)
}

func (h *RESTHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := ClaimsFrom(ctx)

	records, err := h.records.List(ctx, recordTypeFrom(ctx), claims.Email)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeOK(w, http.StatusOK, "", records)
}

func (h *RESTHandler) InsertRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := ClaimsFrom(ctx)
	rt := recordTypeFrom(ctx)

	var input map[string]any
	if err := decodeBody(r, &input); err != nil {
		writeError(ctx, w, err)
		return
	}

	rec, err := h.records.Insert(ctx, rt, claims.Email, input)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeOK(w, http.StatusCreated, fmt.Sprintf("%s record created", rt), rec)
}

// ViewRecords runs the table view over the caller's records and returns the
// rendered page.
func (h *RESTHandler) ViewRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := ClaimsFrom(ctx)
	rt := recordTypeFrom(ctx)

	query, err := ParseViewQuery(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	records, err := h.records.List(ctx, rt, claims.Email)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	schema, _ := types.SchemaFor(rt)
	view := tableview.New(tableview.WithSchema(schema))
	if err := view.Load(records); err != nil {
		writeError(ctx, w, apperrors.Wrap(err, apperrors.ErrCodeFormat, "api.ViewRecords"))
		return
	}
	if err := query.Apply(view); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeOK(w, http.StatusOK, "", view.Render())
}

func (h *RESTHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	schema, _ := types.SchemaFor(recordTypeFrom(r.Context()))
	writeOK(w, http.StatusOK, "", schema)
}

// decodeBody reads one JSON value, keeping numbers exact.
func decodeBody(r *http.Request, v any) error {
	const op = "api.decodeBody"
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}
	if len(body) > maxBodyBytes {
		return apperrors.NewValidationError(op, "request body too large")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return apperrors.NewValidationErrorf(op, "invalid request body: %v", err)
	}
	return nil
}
