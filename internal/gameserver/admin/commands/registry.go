package commands

import "github.com/udisondev/towergate/internal/gameserver/admin"

// RegisterAll registers all admin and user commands into the handler.
func RegisterAll(h *admin.Handler, zones Zones, sel *Selections) {
	// Admin commands (// prefix)
	h.RegisterAdmin(NewPos(sel))
	h.RegisterAdmin(NewRegion(zones, sel))
	h.RegisterAdmin(NewZone(zones))

	// User commands (/ prefix)
	h.RegisterUser(NewWhere(zones))
}
