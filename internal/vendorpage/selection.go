package vendorpage

import "era-vendors-api/internal/models"

// Selection is the set of vendor ids marked for a bulk action. It remembers
// the order ids were added in. The zero value is empty.
type Selection struct {
	ids []string
}

func (s *Selection) index(id string) int {
	for i, v := range s.ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Toggle adds id if absent and removes it otherwise. It reports whether id is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if i := s.index(id); i >= 0 {
		s.ids = append(s.ids[:i], s.ids[i+1:]...)
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// ToggleAll clears the selection when every row of list is selected and selects all rows otherwise.
func (s *Selection) ToggleAll(list []models.Vendor) {
	if s.AllSelected(list) {
		s.Clear()
		return
	}
	s.ids = s.ids[:0]
	for _, v := range list {
		s.ids = append(s.ids, v.ID)
	}
}

// Set replaces the selection.
func (s *Selection) Set(ids ...string) {
	s.ids = s.ids[:0]
	for _, id := range ids {
		if s.index(id) < 0 {
			s.ids = append(s.ids, id)
		}
	}
}

func (s *Selection) Clear() { s.ids = nil }

// Prune drops ids that are not in list and reports whether anything was dropped.
func (s *Selection) Prune(list []models.Vendor) bool {
	if len(s.ids) == 0 {
		return false
	}
	present := make(map[string]struct{}, len(list))
	for _, v := range list {
		present[v.ID] = struct{}{}
	}
	kept := s.ids[:0]
	for _, id := range s.ids {
		if _, ok := present[id]; ok {
			kept = append(kept, id)
		}
	}
	pruned := len(kept) != len(s.ids)
	s.ids = kept
	return pruned
}

// IDs returns a copy of the selected ids.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Selection) Contains(id string) bool { return s.index(id) >= 0 }

func (s *Selection) Len() int { return len(s.ids) }

// AllSelected drives the header checkbox: true when the selection is as large as a non-empty list.
func (s *Selection) AllSelected(list []models.Vendor) bool {
	return len(list) > 0 && len(s.ids) == len(list)
}
