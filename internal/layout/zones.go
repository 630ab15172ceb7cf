package layout

import "github.com/iliyamo/floor-layout/internal/model"

// ZonePatch lists the zone fields UpdateZone may change.
type ZonePatch struct {
	Name      *string
	Color     *string
	IsVisible *bool
}

// AddZone creates a visible zone and commits.
func (e *Engine) AddZone(name, color string) model.Zone {
	z := model.Zone{ID: e.newID(), Name: name, Color: color, IsVisible: true}
	zones := append(append(make([]model.Zone, 0, len(e.zones)+1), e.zones...), z)
	e.zones = zones
	e.revalidate()
	e.commit()
	return z
}

// UpdateZone shallow-merges p into the zone and commits.
func (e *Engine) UpdateZone(id string, p ZonePatch) (model.Zone, error) {
	i := e.zoneIndex(id)
	if i < 0 {
		return model.Zone{}, ErrZoneNotFound
	}
	zones := append([]model.Zone(nil), e.zones...)
	z := &zones[i]
	if p.Name != nil {
		z.Name = *p.Name
	}
	if p.Color != nil {
		z.Color = *p.Color
	}
	if p.IsVisible != nil {
		z.IsVisible = *p.IsVisible
	}
	e.zones = zones
	e.revalidate()
	e.commit()
	return *z, nil
}

// SetZoneVisibility shows or hides every table of a zone.
func (e *Engine) SetZoneVisibility(id string, visible bool) error {
	_, err := e.UpdateZone(id, ZonePatch{IsVisible: &visible})
	return err
}

// DeleteZone removes a zone.  Member tables stay on the floor with their
// zone reference cleared.
func (e *Engine) DeleteZone(id string) error {
	i := e.zoneIndex(id)
	if i < 0 {
		return ErrZoneNotFound
	}
	zones := make([]model.Zone, 0, len(e.zones)-1)
	zones = append(zones, e.zones[:i]...)
	zones = append(zones, e.zones[i+1:]...)

	tables := e.cloneTables()
	for j := range tables {
		if tables[j].Zone == id {
			tables[j].Zone = ""
		}
	}
	e.zones = zones
	e.tables = tables
	e.revalidate()
	e.commit()
	return nil
}

func (e *Engine) zoneIndex(id string) int {
	for i, z := range e.zones {
		if z.ID == id {
			return i
		}
	}
	return -1
}
