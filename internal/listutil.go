package internal

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"era-vendors-api/internal/models"
)

// listParams holds the query parameters of GET /vendors. The list is never paginated.
type listParams struct {
	q    string
	sort string
}

func parseListParams(r *http.Request) listParams {
	values := r.URL.Query()
	return listParams{
		q:    strings.TrimSpace(values.Get("q")),
		sort: strings.TrimSpace(values.Get("sort")),
	}
}

// listResponse is the envelope of every list endpoint.
type listResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

func sendListResponse(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, listResponse{Data: data, Total: total})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// filterVendors keeps vendors whose name contains q, ignoring case.
func filterVendors(vendors []models.Vendor, q string) []models.Vendor {
	if q == "" {
		return vendors
	}
	needle := strings.ToLower(q)
	out := vendors[:0]
	for _, v := range vendors {
		if strings.Contains(strings.ToLower(v.Name), needle) {
			out = append(out, v)
		}
	}
	return out
}

type sortKey struct {
	field string
	desc  bool
}

// parseSort reads a comma separated list of field keys, each optionally prefixed
// with '-' for descending order. Keys outside allowed are skipped.
func parseSort(sortParam string, allowed map[string]bool) []sortKey {
	var keys []sortKey
	for _, raw := range strings.Split(sortParam, ",") {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		desc := strings.HasPrefix(s, "-")
		s = strings.TrimPrefix(s, "-")
		if !allowed[s] {
			continue
		}
		keys = append(keys, sortKey{field: s, desc: desc})
	}
	return keys
}

var vendorSortFields = map[string]bool{
	"id":                      true,
	models.FieldName:          true,
	models.FieldContactPerson: true,
	models.FieldEmail:         true,
	models.FieldPhone:         true,
	models.FieldAddress:       true,
}

// sortVendors orders vendors in place. Without valid keys the store order is kept.
func sortVendors(vendors []models.Vendor, sortParam string) {
	keys := parseSort(sortParam, vendorSortFields)
	if len(keys) == 0 {
		return
	}
	value := func(v models.Vendor, field string) string {
		if field == "id" {
			return v.ID
		}
		s, _ := v.Get(field)
		return strings.ToLower(s)
	}
	sort.SliceStable(vendors, func(i, j int) bool {
		for _, k := range keys {
			a, b := value(vendors[i], k.field), value(vendors[j], k.field)
			if a == b {
				continue
			}
			if k.desc {
				return a > b
			}
			return a < b
		}
		return false
	})
}
