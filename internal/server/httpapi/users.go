package httpapi

import (
	"net/http"

	"github.com/weightlog/weightlog/internal/server/models"
)

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Pointer fields tell a missing value from false or zero; required only
// rejects absent ones.
type newUserRequest struct {
	Username   string   `json:"username" validate:"required"`
	Password   string   `json:"password"`
	Metric     *bool    `json:"metric" validate:"required"`
	GoalWeight *float64 `json:"goal_weight" validate:"required"`
}

// updateUserRequest carries the profile fields of PUT /user/. An empty
// username keeps the current one.
type updateUserRequest struct {
	Username   *string  `json:"username" validate:"required"`
	Metric     *bool    `json:"metric" validate:"required"`
	GoalWeight *float64 `json:"goal_weight" validate:"required"`
}

type passwordChange struct {
	Current string `validate:"required"`
	New     string
}

// handleLogin implements the OAuth2 password flow: form fields username and
// password in, bearer token out.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeInvalid(w, err)
		return
	}
	form := loginForm{Username: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
	if err := s.validate.Struct(form); err != nil {
		writeInvalid(w, err)
		return
	}

	token, err := s.users.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req newUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalid(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeInvalid(w, err)
		return
	}

	if _, err := s.users.Add(r.Context(), req.Username, *req.Metric, *req.GoalWeight, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()).ToDTO())
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalid(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeInvalid(w, err)
		return
	}

	updated, err := s.users.Update(r.Context(), userFrom(r.Context()).ID, toUserDTO(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.ToDTO())
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("current_password") || !q.Has("new_password") {
		writeDetail(w, http.StatusUnprocessableEntity, "current_password and new_password are required")
		return
	}
	req := passwordChange{Current: q.Get("current_password"), New: q.Get("new_password")}
	if err := s.validate.Struct(req); err != nil {
		writeInvalid(w, err)
		return
	}

	if err := s.users.ChangeOwnPassword(r.Context(), userFrom(r.Context()), req.Current, req.New); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func toUserDTO(req updateUserRequest) models.UserDTO {
	return models.UserDTO{
		Username:   *req.Username,
		Metric:     *req.Metric,
		GoalWeight: *req.GoalWeight,
	}
}
