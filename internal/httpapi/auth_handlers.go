package httpapi

import (
	"net/http"

	"rehla.tn/internal/auth"
)

type registerUserRequest struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	State    string `json:"state"`
	Password string `json:"password"`
}

type loginUserRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginAgencyRequest struct {
	Code string `json:"code"`
}

type loginEmailRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerHospitalRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func sessionPayload(session auth.Session, key string, principal any) map[string]any {
	return map[string]any{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		key:          principal,
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, user, err := a.auth.RegisterUser(r.Context(), auth.RegisterUserParams{
		Name:     req.Name,
		LastName: req.LastName,
		Phone:    req.Phone,
		Email:    req.Email,
		State:    req.State,
		Password: req.Password,
	}, meta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionPayload(session, "user", user))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, user, err := a.auth.LoginUser(r.Context(), req.Phone, req.Password, meta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session, "user", user))
}

func (a *API) handleAgencyLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginAgencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, agency, err := a.auth.LoginAgency(r.Context(), req.Code, meta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session, "agency", agency))
}

func (a *API) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, admin, err := a.auth.LoginAdmin(r.Context(), req.Email, req.Password, meta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session, "admin", admin))
}

func (a *API) handleHospitalRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerHospitalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, hospital, err := a.auth.RegisterHospital(r.Context(), auth.RegisterHospitalParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	}, meta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionPayload(session, "hospital", hospital))
}

func (a *API) handleHospitalLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, hospital, err := a.auth.LoginHospital(r.Context(), req.Email, req.Password, meta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session, "hospital", hospital))
}
