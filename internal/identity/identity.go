package identity

import (
	"fmt"
	"strconv"
	"strings"
)

// Principal — кто выполняет операцию. Аутентификация вне этого модуля.
type Principal struct {
	UserID     int64
	Staff      bool
	EmployeeID *int64
}

func User(id int64) Principal { return Principal{UserID: id} }

func Employee(userID, employeeID int64) Principal {
	return Principal{UserID: userID, Staff: true, EmployeeID: &employeeID}
}

// Owns — может ли принципал работать с бронью пользователя ownerID. Персонал может всё.
func (p Principal) Owns(ownerID int64) bool {
	return p.Staff || p.UserID == ownerID
}

// Headers, из которых HTTP-слой собирает Principal.
const (
	HeaderUserID     = "X-User-ID"
	HeaderStaff      = "X-Staff"
	HeaderEmployeeID = "X-Employee-ID"
)

// FromHeaders разбирает значения заголовков. Пустой user id — ошибка.
func FromHeaders(userID, staff, employeeID string) (Principal, error) {
	var p Principal
	id, err := strconv.ParseInt(strings.TrimSpace(userID), 10, 64)
	if err != nil || id <= 0 {
		return p, fmt.Errorf("bad %s header", HeaderUserID)
	}
	p.UserID = id

	switch strings.ToLower(strings.TrimSpace(staff)) {
	case "1", "true", "yes":
		p.Staff = true
	}

	if s := strings.TrimSpace(employeeID); s != "" {
		eid, err := strconv.ParseInt(s, 10, 64)
		if err != nil || eid <= 0 {
			return p, fmt.Errorf("bad %s header", HeaderEmployeeID)
		}
		p.EmployeeID = &eid
	}
	return p, nil
}
