// Package assignment distributes new cases across the handler roster in
// round-robin order. The roster is an ordered list with a cursor pointing at
// the last handler who received a case; the next assignment starts after the
// cursor and skips inactive handlers.
package assignment

// HandlerStatus is a handler's availability on the roster.
type HandlerStatus string

const (
	StatusActive   HandlerStatus = "active"
	StatusInactive HandlerStatus = "inactive"
)

// Handler is one reviewer on the roster. EmployeeCode is the stable human
// identifier; Position is the 1-based rotation order and stays dense
// (1..N, no gaps) across every mutation.
type Handler struct {
	ID           string        `json:"id"`
	EmployeeCode string        `json:"employee_code"`
	Name         string        `json:"name"`
	Status       HandlerStatus `json:"status"`
	Position     int           `json:"position"`
}

// Active reports whether the handler can receive assignments.
func (h Handler) Active() bool {
	return h.Status == StatusActive
}

// Roster is the ordered handler list plus the rotation cursor. Cursor holds
// the employee code of the last handler assigned a case; it may point at a
// handler who has since been deactivated, in which case the next assignment
// simply continues past them. Version backs optimistic saves.
type Roster struct {
	Handlers []Handler `json:"handlers"`
	Cursor   string    `json:"cursor"`
	Version  int64     `json:"version"`
}

// ActiveCount returns the number of active handlers.
func (r Roster) ActiveCount() int {
	n := 0
	for _, h := range r.Handlers {
		if h.Active() {
			n++
		}
	}
	return n
}

func (r Roster) indexOf(employeeCode string) int {
	for i, h := range r.Handlers {
		if h.EmployeeCode == employeeCode {
			return i
		}
	}
	return -1
}

// clone returns a deep copy so callers can mutate without aliasing.
func (r Roster) clone() Roster {
	out := r
	out.Handlers = append([]Handler(nil), r.Handlers...)
	return out
}
