package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"rehla.tn/internal/audit"
	"rehla.tn/internal/auth"
	"rehla.tn/internal/clinic"
)

type registerPatientRequest struct {
	ChildName     string    `json:"child_name"`
	GuardianName  string    `json:"guardian_name"`
	GuardianPhone string    `json:"guardian_phone"`
	BirthDate     time.Time `json:"birth_date"`
}

type updatePatientRequest struct {
	ChildName     string `json:"child_name"`
	GuardianName  string `json:"guardian_name"`
	GuardianPhone string `json:"guardian_phone"`
}

func (a *API) handlePatientsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listPatients(w, r)
	case http.MethodPost:
		a.registerPatient(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePatientResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/patients/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getPatient(w, r, id)
		case http.MethodPut:
			a.updatePatient(w, r, id)
		case http.MethodDelete:
			a.deletePatient(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case "doses":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listPatientDoses(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listPatients(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.authorize(w, r, auth.Policy{Roles: []auth.Role{auth.RoleHospital}}, "")
	if !ok {
		return
	}
	patients, err := a.clinic.ListPatients(r.Context(), identity.PrincipalID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

func (a *API) registerPatient(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.authorize(w, r, auth.Policy{Roles: []auth.Role{auth.RoleHospital}}, "")
	if !ok {
		return
	}
	var req registerPatientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	patient, doses, err := a.clinic.RegisterPatient(r.Context(), identity.PrincipalID, clinic.RegisterPatientParams{
		ChildName:     req.ChildName,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		BirthDate:     req.BirthDate,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "clinic.patient.register", map[string]any{"patient_id": patient.ID})
	w.Header().Set("Location", "/v1/patients/"+patient.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"patient": patient,
		"doses":   doses,
	})
}

// resolvePatient loads the patient and evaluates hospital ownership, writing
// the failure response on a miss.
func (a *API) resolvePatient(w http.ResponseWriter, r *http.Request, id string) (*clinic.Patient, bool) {
	patient, err := a.clinic.GetPatient(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return nil, false
	}
	if _, ok := a.authorize(w, r, policyHospitalSelf, patient.HospitalID); !ok {
		return nil, false
	}
	return patient, true
}

func (a *API) getPatient(w http.ResponseWriter, r *http.Request, id string) {
	patient, ok := a.resolvePatient(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

func (a *API) updatePatient(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.resolvePatient(w, r, id); !ok {
		return
	}
	var req updatePatientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	patient, err := a.clinic.UpdatePatient(r.Context(), id, clinic.PatientUpdate{
		ChildName:     req.ChildName,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

func (a *API) deletePatient(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.resolvePatient(w, r, id); !ok {
		return
	}
	if err := a.clinic.DeletePatient(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "clinic.patient.delete", map[string]any{"patient_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (a *API) listPatientDoses(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.resolvePatient(w, r, id); !ok {
		return
	}
	doses, err := a.clinic.PatientCalendar(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doses)
}

func (a *API) handleDueDoses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := a.authorize(w, r, auth.Policy{Roles: []auth.Role{auth.RoleHospital}}, "")
	if !ok {
		return
	}
	days := 30
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 365 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = v
	}
	due, err := a.clinic.DueSoon(r.Context(), identity.PrincipalID, time.Duration(days)*24*time.Hour)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, due)
}

func (a *API) handleDoseResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/doses/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" || sub != "administer" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	dose, err := a.clinic.GetDose(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if _, ok := a.resolvePatient(w, r, dose.PatientID); !ok {
		return
	}
	if err := a.clinic.MarkAdministered(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "clinic.dose.administer", map[string]any{"dose_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "administered": true})
}
