// internal/models/franchise.go
package models

// Franchise is a selectable team template. A claim moves one of these
// out of the room's unclaimed pool and into a live Team; a lobby-phase
// kick returns it.
type Franchise struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Color     string `json:"color"`
}

// DefaultFranchises is the stock franchise pool assigned to every new
// room. Rooms copy this slice so claims never mutate the template set.
func DefaultFranchises() []Franchise {
	return []Franchise{
		{ID: "mum", Name: "Mumbai Mavericks", ShortName: "MUM", Color: "#004ba0"},
		{ID: "che", Name: "Chennai Comets", ShortName: "CHE", Color: "#f9cd05"},
		{ID: "del", Name: "Delhi Dynamos", ShortName: "DEL", Color: "#282968"},
		{ID: "kol", Name: "Kolkata Kestrels", ShortName: "KOL", Color: "#3a225d"},
		{ID: "pun", Name: "Punjab Panthers", ShortName: "PUN", Color: "#d71920"},
		{ID: "raj", Name: "Rajasthan Raptors", ShortName: "RAJ", Color: "#e83e8c"},
		{ID: "ban", Name: "Bangalore Bolts", ShortName: "BAN", Color: "#2b2a29"},
		{ID: "hyd", Name: "Hyderabad Hawks", ShortName: "HYD", Color: "#ff822a"},
	}
}
