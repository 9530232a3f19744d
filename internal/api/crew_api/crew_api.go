// Package crew_api exposes the crew-facing HTTP surface. Handlers stay thin:
// decode, call a service, map the error kind to a status code.
package crew_api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/othaplug/crewtrack/internal/models"
	"github.com/othaplug/crewtrack/internal/services/extraitems"
	"github.com/othaplug/crewtrack/internal/services/incidents"
	"github.com/othaplug/crewtrack/internal/services/locations"
	"github.com/othaplug/crewtrack/internal/services/sessions"
	"github.com/othaplug/crewtrack/internal/storage/pgcrew"
)

type CrewAPI struct {
	sessions   *sessions.Service
	extraItems *extraitems.Service
	locations  *locations.Service
	incidents  *incidents.Service
}

func New(s *sessions.Service, e *extraitems.Service, l *locations.Service, i *incidents.Service) *CrewAPI {
	return &CrewAPI{sessions: s, extraItems: e, locations: l, incidents: i}
}

func (a *CrewAPI) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", a.startSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", a.getState)
			r.Post("/advance", a.advance)
			r.Post("/verifications", a.verify)
			r.Post("/photos", a.addPhoto)
			r.Post("/extra-items", a.submitExtraItem)
		})
		r.Post("/extra-items/{requestID}/decision", a.decideExtraItem)
		r.Route("/jobs/{jobType}/{jobID}", func(r chi.Router) {
			r.Post("/inventory", a.registerInventory)
			r.Get("/inventory", a.displayInventory)
			r.Get("/extra-items", a.listExtraItems)
			r.Get("/incidents", a.listIncidents)
		})
		r.Post("/locations", a.ingestLocation)
		r.Post("/incidents", a.reportIncident)
	})
}

func jobRef(r *http.Request) models.JobRef {
	return models.JobRef{
		JobType: models.JobType(chi.URLParam(r, "jobType")),
		JobID:   chi.URLParam(r, "jobID"),
	}
}

type startSessionRequest struct {
	JobType models.JobType `json:"jobType"`
	JobID   string         `json:"jobId"`
}

func (a *CrewAPI) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := a.sessions.Start(r.Context(), models.JobRef{JobType: req.JobType, JobID: req.JobID})
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (a *CrewAPI) getState(w http.ResponseWriter, r *http.Request) {
	st, err := a.sessions.GetState(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

type advanceRequest struct {
	Target models.Status `json:"target,omitempty"`
	Note   *string       `json:"note,omitempty"`
	Lat    *float64      `json:"lat,omitempty"`
	Lng    *float64      `json:"lng,omitempty"`
}

func (a *CrewAPI) advance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if !decode(w, r, &req) {
		return
	}
	cp, err := a.sessions.Advance(r.Context(), sessions.AdvanceInput{
		SessionID: chi.URLParam(r, "sessionID"),
		Target:    req.Target,
		Note:      req.Note,
		Lat:       req.Lat,
		Lng:       req.Lng,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cp)
}

type verifyRequest struct {
	ItemKey string       `json:"itemKey"`
	Stage   models.Stage `json:"stage"`
}

func (a *CrewAPI) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decode(w, r, &req) {
		return
	}
	if err := a.sessions.Verify(r.Context(), chi.URLParam(r, "sessionID"), req.ItemKey, req.Stage); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addPhotoRequest struct {
	Category string `json:"category"`
	URL      string `json:"url"`
}

func (a *CrewAPI) addPhoto(w http.ResponseWriter, r *http.Request) {
	var req addPhotoRequest
	if !decode(w, r, &req) {
		return
	}
	photo, err := a.sessions.AddPhoto(r.Context(), chi.URLParam(r, "sessionID"), req.Category, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, photo)
}

type inventoryItemRequest struct {
	ItemKey string  `json:"itemKey"`
	Name    string  `json:"name"`
	Room    *string `json:"room,omitempty"`
}

type registerInventoryRequest struct {
	Items []inventoryItemRequest `json:"items"`
}

func (a *CrewAPI) registerInventory(w http.ResponseWriter, r *http.Request) {
	var req registerInventoryRequest
	if !decode(w, r, &req) {
		return
	}
	items := make([]pgcrew.InventoryItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, pgcrew.InventoryItemInput{ItemKey: it.ItemKey, Name: it.Name, Room: it.Room})
	}
	if err := a.sessions.RegisterInventory(r.Context(), jobRef(r), items); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *CrewAPI) displayInventory(w http.ResponseWriter, r *http.Request) {
	lines, err := a.extraItems.DisplayInventory(r.Context(), jobRef(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if lines == nil {
		lines = []extraitems.DisplayLine{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": lines})
}

type submitExtraItemRequest struct {
	Description string             `json:"description"`
	Room        *string            `json:"room,omitempty"`
	Quantity    int32              `json:"quantity,omitempty"`
	RequestedBy models.RequestedBy `json:"requestedBy,omitempty"`
}

func (a *CrewAPI) submitExtraItem(w http.ResponseWriter, r *http.Request) {
	var req submitExtraItemRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := a.extraItems.Submit(r.Context(), extraitems.SubmitInput{
		SessionID:   chi.URLParam(r, "sessionID"),
		Description: req.Description,
		Room:        req.Room,
		Quantity:    req.Quantity,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

type decisionRequest struct {
	Decision models.ExtraItemStatus `json:"decision"`
	FeeCents *int64                 `json:"feeCents,omitempty"`
}

func (a *CrewAPI) decideExtraItem(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := a.extraItems.Decide(r.Context(), chi.URLParam(r, "requestID"), req.Decision, req.FeeCents)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (a *CrewAPI) listExtraItems(w http.ResponseWriter, r *http.Request) {
	status := models.ExtraItemStatus(r.URL.Query().Get("status"))
	items, err := a.extraItems.ListForJob(r.Context(), jobRef(r), status)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"requests": items})
}

type locationRequest struct {
	SessionID *string    `json:"sessionId,omitempty"`
	DeviceID  string     `json:"deviceId"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Accuracy  *float64   `json:"accuracy,omitempty"`
	Speed     *float64   `json:"speed,omitempty"`
	Heading   *float64   `json:"heading,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ingestLocation всегда отвечает 202: дроп из-за троттлинга — не ошибка клиента.
func (a *CrewAPI) ingestLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !decode(w, r, &req) {
		return
	}
	ping := models.LocationPing{
		SessionID: req.SessionID,
		DeviceID:  req.DeviceID,
		Lat:       req.Lat,
		Lng:       req.Lng,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Heading:   req.Heading,
	}
	if req.Timestamp != nil {
		ping.Timestamp = *req.Timestamp
	}
	accepted := a.locations.Ingest(r.Context(), ping)
	respondJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

type incidentRequest struct {
	JobType     models.JobType   `json:"jobType"`
	JobID       string           `json:"jobId"`
	SessionID   *string          `json:"sessionId,omitempty"`
	IssueType   models.IssueType `json:"issueType"`
	Description *string          `json:"description,omitempty"`
}

func (a *CrewAPI) reportIncident(w http.ResponseWriter, r *http.Request) {
	var req incidentRequest
	if !decode(w, r, &req) {
		return
	}
	rep, err := a.incidents.Report(r.Context(), incidents.ReportInput{
		Job:         models.JobRef{JobType: req.JobType, JobID: req.JobID},
		SessionID:   req.SessionID,
		IssueType:   req.IssueType,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rep)
}

func (a *CrewAPI) listIncidents(w http.ResponseWriter, r *http.Request) {
	reports, err := a.incidents.ListForJob(r.Context(), jobRef(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"incidents": reports})
}
