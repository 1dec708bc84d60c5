package adminapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vango-dev/fetchkit/pkg/resource"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func failure(message string, details ...string) resource.CallResult[any] {
	return resource.CallResult[any]{Message: message, Errors: details}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// queryInt parses a positive integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, resource.OK(map[string]string{"status": "ok"}))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure(err.Error()))
		return
	}
	limit, err := queryInt(r, "limit", DefaultPageLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure(err.Error()))
		return
	}
	if limit > MaxPageLimit {
		writeJSON(w, http.StatusBadRequest, failure(fmt.Sprintf("limit must not exceed %d", MaxPageLimit)))
		return
	}

	users, total := s.store.List(page, limit)
	writeJSON(w, http.StatusOK, resource.CallResult[[]User]{
		Success: true,
		Data:    users,
		Pagination: &resource.PageInfo{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, failure(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, resource.OK(u))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("invalid request body"))
		return
	}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, failure(err.Error()))
			return
		}
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
		writeJSON(w, http.StatusUnprocessableEntity, failure("invalid user", details...))
		return
	}

	u := s.store.Create(req)
	s.log.Info("user created", "id", u.ID, "role", u.Role)
	s.changed()
	writeJSON(w, http.StatusCreated, resource.OK(u))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.Delete(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, failure(err.Error()))
		return
	}
	s.log.Info("user deleted", "id", u.ID)
	s.changed()
	writeJSON(w, http.StatusOK, resource.OK(u))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, resource.OK(s.Stats()))
}
