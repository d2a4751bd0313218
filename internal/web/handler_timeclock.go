package web

import (
	"net/http"
)

type clockRequest struct {
	EmployeeName string `json:"employeeName"`
}

func (s *Server) handleClockIn(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.service.ClockIn(r.Context(), req.EmployeeName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleClockOut(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.service.ClockOut(r.Context(), req.EmployeeName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListTimeEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.TimeEntries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := s.service.Shifts(r.Context(), r.URL.Query().Get("employee"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	type shiftView struct {
		EmployeeName string  `json:"employeeName"`
		Date         string  `json:"date"`
		ClockIn      string  `json:"clockIn"`
		ClockOut     string  `json:"clockOut,omitempty"`
		Hours        float64 `json:"hours"`
		Open         bool    `json:"open"`
		Saved        bool    `json:"isSaved"`
	}
	out := make([]shiftView, 0, len(shifts))
	for _, sh := range shifts {
		v := shiftView{
			EmployeeName: sh.EmployeeName,
			Date:         sh.Date,
			ClockIn:      sh.ClockIn.Time,
			Hours:        sh.Hours(),
			Open:         sh.Open(),
			Saved:        sh.ClockIn.IsSaved,
		}
		if sh.ClockOut != nil {
			v.ClockOut = sh.ClockOut.Time
			v.Saved = v.Saved && sh.ClockOut.IsSaved
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleServerTimesheets(w http.ResponseWriter, r *http.Request) {
	recs, err := s.service.ServerTimesheets(r.Context(), r.URL.Query().Get("employee"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
