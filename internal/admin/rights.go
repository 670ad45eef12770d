// Package admin holds the admin-only concerns: rights checks, log file
// retrieval and notifications sent to admins.
package admin

import "sort"

// Rights is the static set of admin user ids loaded at startup.
type Rights struct {
	admins map[int64]struct{}
}

// NewRights builds Rights from ids; zero ids are ignored.
func NewRights(ids []int64) *Rights {
	r := &Rights{admins: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		if id != 0 {
			r.admins[id] = struct{}{}
		}
	}
	return r
}

// IsAdmin reports whether userID may run admin commands.
func (r *Rights) IsAdmin(userID int64) bool {
	if r == nil {
		return false
	}
	_, ok := r.admins[userID]
	return ok
}

// IDs returns the admin ids in ascending order.
func (r *Rights) IDs() []int64 {
	if r == nil {
		return nil
	}
	ids := make([]int64, 0, len(r.admins))
	for id := range r.admins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
