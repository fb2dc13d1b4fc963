package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/model"
)

type regionDTO struct {
	ID    string      `json:"id"`
	World string      `json:"world"`
	Min   [3]int32    `json:"min"`
	Max   [3]int32    `json:"max"`
	Floor *bindingDTO `json:"floor,omitempty"`
}

type bindingDTO struct {
	Group         string `json:"group"`
	Floor         int32  `json:"floor"`
	RequiredKills int32  `json:"required_kills,omitempty"`
}

type floorDTO struct {
	Floor  int32  `json:"floor"`
	Region string `json:"region"`
}

type groupDTO struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	MinLevel   int32      `json:"min_level"`
	MaxLevel   int32      `json:"max_level"`
	ExitPolicy string     `json:"exit_policy"`
	Floors     []floorDTO `json:"floors"`
}

type positionDTO struct {
	World string `json:"world"`
	X     int32  `json:"x"`
	Y     int32  `json:"y"`
	Z     int32  `json:"z"`
}

func (p positionDTO) position() model.Position {
	return model.NewPosition(p.World, p.X, p.Y, p.Z)
}

func positionOf(p model.Position) positionDTO {
	return positionDTO{World: p.World, X: p.X, Y: p.Y, Z: p.Z}
}

type progressDTO struct {
	Level int32  `json:"level"`
	Group string `json:"group,omitempty"`
	Floor int32  `json:"floor,omitempty"`
	Kills int32  `json:"kills"`
}

type entityDTO struct {
	Entity   model.EntityID `json:"entity"`
	Tracked  bool           `json:"tracked"`
	Region   string         `json:"region,omitempty"`
	Floor    *bindingDTO    `json:"floor,omitempty"`
	Progress *progressDTO   `json:"progress,omitempty"`
}

type eventRequest struct {
	Entity string      `json:"entity"`
	From   positionDTO `json:"from"`
	To     positionDTO `json:"to"`
	Cause  model.Cause `json:"cause"`
}

type verdictDTO struct {
	Outcome    string       `json:"outcome"`
	Reason     string       `json:"reason,omitempty"`
	RollbackTo *positionDTO `json:"rollback_to,omitempty"`
}

type reloadDTO struct {
	Regions  int      `json:"regions"`
	Groups   int      `json:"groups"`
	Bindings int      `json:"bindings"`
	Ignored  int      `json:"ignored,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
}

// parseEntity accepts a UUID or an entity name.
func parseEntity(s string) (model.EntityID, error) {
	if id, err := model.ParseEntityID(s); err == nil {
		return id, nil
	}
	if strings.TrimSpace(s) == "" {
		return model.NoEntity, fmt.Errorf("entity is required")
	}
	return model.EntityIDFromName(s), nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	h.writeJSON(w, status, map[string]any{
		"status":  state,
		"backend": h.svc.Backend(),
		"checks":  checks,
	})
}

func (h *Handler) handleRegions(w http.ResponseWriter, _ *http.Request) {
	regions := h.svc.Regions()
	slices.SortFunc(regions, func(a, b region.Region) int { return strings.Compare(a.ID(), b.ID()) })

	out := make([]regionDTO, 0, len(regions))
	for _, r := range regions {
		lo, hi := r.Min(), r.Max()
		dto := regionDTO{
			ID:    r.ID(),
			World: r.World(),
			Min:   [3]int32{lo.X, lo.Y, lo.Z},
			Max:   [3]int32{hi.X, hi.Y, hi.Z},
		}
		if b, ok := h.svc.BindingFor(r.ID()); ok {
			dto.Floor = &bindingDTO{Group: b.GroupID, Floor: b.Floor, RequiredKills: b.RequiredKills}
		}
		out = append(out, dto)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleZones(w http.ResponseWriter, _ *http.Request) {
	groups := h.svc.Groups()
	out := make([]groupDTO, 0, len(groups))
	for _, g := range groups {
		dto := groupDTO{
			ID:         g.ID,
			Name:       g.DisplayName(),
			MinLevel:   g.MinLevel,
			MaxLevel:   g.MaxLevel,
			ExitPolicy: string(g.Exit),
			Floors:     make([]floorDTO, 0, len(g.Floors)),
		}
		for _, f := range g.Floors {
			regionID, _ := h.svc.RegionFor(g.ID, f)
			dto.Floors = append(dto.Floors, floorDTO{Floor: f, Region: regionID})
		}
		out = append(out, dto)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Reload(r.Context())
	if err != nil {
		h.logger.Error("reload via http failed", "err", err)
		h.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	dto := reloadDTO{
		Regions:  report.Regions.Loaded,
		Groups:   report.Zones.Groups,
		Bindings: report.Zones.Bindings,
		Ignored:  report.Ignored,
	}
	for _, err := range slices.Concat(report.Regions.Skipped, report.Zones.Skipped) {
		dto.Skipped = append(dto.Skipped, err.Error())
	}
	h.writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	entity, err := parseEntity(req.Entity)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	v, err := h.svc.Handle(r.Context(), model.PositionUpdate{
		Entity: entity,
		From:   req.From.position(),
		To:     req.To.position(),
		Cause:  req.Cause,
	})
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	dto := verdictDTO{Outcome: v.Outcome.String(), Reason: v.Reason}
	if !v.Allowed() {
		p := positionOf(v.RollbackTo)
		dto.RollbackTo = &p
	}
	h.writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) entityParam(w http.ResponseWriter, r *http.Request) (model.EntityID, bool) {
	entity, err := parseEntity(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return model.NoEntity, false
	}
	return entity, true
}

func (h *Handler) handleEntity(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entityParam(w, r)
	if !ok {
		return
	}
	h.writeEntity(r.Context(), w, entity)
}

func (h *Handler) writeEntity(ctx context.Context, w http.ResponseWriter, entity model.EntityID) {
	view, err := h.svc.Entity(ctx, entity)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	dto := entityDTO{Entity: view.Entity, Tracked: view.Tracked, Region: view.RegionID}
	if b := view.Binding; b != nil {
		dto.Floor = &bindingDTO{Group: b.GroupID, Floor: b.Floor, RequiredKills: b.RequiredKills}
	}
	if p := view.Progress; p != nil {
		dto.Progress = &progressDTO{Level: p.Level, Group: p.Group, Floor: p.Floor, Kills: p.Kills}
	}
	h.writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entityParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Level int32 `json:"level"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.Progress().SetLevel(entity, req.Level); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeEntity(r.Context(), w, entity)
}

func (h *Handler) handleKill(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entityParam(w, r)
	if !ok {
		return
	}
	kills, err := h.svc.Progress().RecordKill(entity)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int32{"kills": kills})
}
