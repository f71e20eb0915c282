// Copyright 2025 Certen Protocol
//
// Event endpoints (spec.md §6): /events (search), /events/mark,
// /events/mark/all, /events/id/{id}.

package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/orchestration"
)

type searchEventsRequest struct {
	Limit int `json:"limit"`
}

func handleEventSearch(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchEventsRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		out, err := svc.ListNewEvents(r.Context(), req.Limit)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, out)
	}
}

type markEventRequest struct {
	ID     uuid.UUID            `json:"id"`
	Status database.EventStatus `json:"status"`
}

func handleEventMark(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markEventRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		if err := svc.MarkEvent(r.Context(), req.ID, req.Status); err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, map[string]any{"id": req.ID, "status": req.Status})
	}
}

type markAllEventsRequest struct {
	Status database.EventStatus `json:"status"`
}

func handleEventMarkAll(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markAllEventsRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		status := req.Status
		if status == "" {
			status = database.EventStatusNotified
		}
		n, err := svc.MarkAllEvents(r.Context(), serviceIDFromContext(r.Context()), status)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, map[string]any{"updated": n, "status": status})
	}
}

func handleEventGetByID(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/ton/v3/events/id/")
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeErr(w, apierr.WrongInput("malformed event id"))
			return
		}
		event, err := svc.GetEventByID(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, event)
	}
}
