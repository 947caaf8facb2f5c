package grpcapi

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"medwise-api/internal/model"
)

type Empty struct{}

func (*Empty) MarshalWire() []byte        { return nil }
func (*Empty) UnmarshalWire([]byte) error { return nil }

func appendUser(out []byte, num protowire.Number, u model.PublicUser) []byte {
	var inner []byte
	inner = appendString(inner, 1, u.ID)
	inner = appendString(inner, 2, u.Name)
	inner = appendString(inner, 3, u.Email)
	inner = appendString(inner, 4, string(u.Role))
	return appendMessage(out, num, inner)
}

func parseUser(b []byte) (model.PublicUser, error) {
	var u model.PublicUser
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			u.ID = f.str()
		case 2:
			u.Name = f.str()
		case 3:
			u.Email = f.str()
		case 4:
			u.Role = model.Role(f.str())
		}
		return nil
	})
	return u, err
}

func appendAppointment(out []byte, num protowire.Number, a model.Appointment) []byte {
	var inner []byte
	inner = appendString(inner, 1, a.ID)
	inner = appendString(inner, 2, a.PatientName)
	inner = appendInt(inner, 3, int64(a.PatientAge))
	inner = appendString(inner, 4, string(a.PatientGender))
	inner = appendString(inner, 5, a.ReasonForVisit)
	inner = appendString(inner, 6, a.DoctorID)
	inner = appendString(inner, 7, a.DoctorName)
	inner = appendTime(inner, 8, a.Date)
	inner = appendString(inner, 9, string(a.Type))
	inner = appendString(inner, 10, a.Notes)
	inner = appendString(inner, 11, a.CreatedBy)
	inner = appendTime(inner, 12, a.CreatedAt)
	inner = appendTime(inner, 13, a.UpdatedAt)
	return appendMessage(out, num, inner)
}

func parseAppointment(b []byte) (model.Appointment, error) {
	var a model.Appointment
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			a.ID = f.str()
		case 2:
			a.PatientName = f.str()
		case 3:
			a.PatientAge = int(f.int())
		case 4:
			a.PatientGender = model.Gender(f.str())
		case 5:
			a.ReasonForVisit = f.str()
		case 6:
			a.DoctorID = f.str()
		case 7:
			a.DoctorName = f.str()
		case 8:
			a.Date, err = parseTime(f.b)
		case 9:
			a.Type = model.VisitType(f.str())
		case 10:
			a.Notes = f.str()
		case 11:
			a.CreatedBy = f.str()
		case 12:
			a.CreatedAt, err = parseTime(f.b)
		case 13:
			a.UpdatedAt, err = parseTime(f.b)
		}
		return err
	})
	return a, err
}

type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Role     model.Role
}

func (m *RegisterRequest) MarshalWire() []byte {
	var out []byte
	out = appendString(out, 1, m.Email)
	out = appendString(out, 2, m.Password)
	out = appendString(out, 3, m.Name)
	out = appendString(out, 4, string(m.Role))
	return out
}

func (m *RegisterRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Email = f.str()
		case 2:
			m.Password = f.str()
		case 3:
			m.Name = f.str()
		case 4:
			m.Role = model.Role(f.str())
		}
		return nil
	})
}

type LoginRequest struct {
	Email    string
	Password string
	Role     model.Role
}

func (m *LoginRequest) MarshalWire() []byte {
	var out []byte
	out = appendString(out, 1, m.Email)
	out = appendString(out, 2, m.Password)
	out = appendString(out, 3, string(m.Role))
	return out
}

func (m *LoginRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Email = f.str()
		case 2:
			m.Password = f.str()
		case 3:
			m.Role = model.Role(f.str())
		}
		return nil
	})
}

type RefreshRequest struct {
	RefreshToken string
}

func (m *RefreshRequest) MarshalWire() []byte {
	return appendString(nil, 1, m.RefreshToken)
}

func (m *RefreshRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			m.RefreshToken = f.str()
		}
		return nil
	})
}

type AuthResponse struct {
	User         model.PublicUser
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (m *AuthResponse) MarshalWire() []byte {
	var out []byte
	out = appendUser(out, 1, m.User)
	out = appendString(out, 2, m.AccessToken)
	out = appendString(out, 3, m.RefreshToken)
	out = appendTime(out, 4, m.ExpiresAt)
	return out
}

func (m *AuthResponse) UnmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.User, err = parseUser(f.b)
		case 2:
			m.AccessToken = f.str()
		case 3:
			m.RefreshToken = f.str()
		case 4:
			m.ExpiresAt, err = parseTime(f.b)
		}
		return err
	})
}

type ListAppointmentsRequest struct {
	Query    string
	Sort     string
	Order    string
	Page     int
	PageSize int
}

func (m *ListAppointmentsRequest) MarshalWire() []byte {
	var out []byte
	out = appendString(out, 1, m.Query)
	out = appendString(out, 2, m.Sort)
	out = appendString(out, 3, m.Order)
	out = appendInt(out, 4, int64(m.Page))
	out = appendInt(out, 5, int64(m.PageSize))
	return out
}

func (m *ListAppointmentsRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Query = f.str()
		case 2:
			m.Sort = f.str()
		case 3:
			m.Order = f.str()
		case 4:
			m.Page = int(f.int())
		case 5:
			m.PageSize = int(f.int())
		}
		return nil
	})
}

type ListAppointmentsResponse struct {
	Appointments []model.Appointment
	Total        int
}

func (m *ListAppointmentsResponse) MarshalWire() []byte {
	var out []byte
	for _, a := range m.Appointments {
		out = appendAppointment(out, 1, a)
	}
	out = appendInt(out, 2, int64(m.Total))
	return out
}

func (m *ListAppointmentsResponse) UnmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			a, err := parseAppointment(f.b)
			if err != nil {
				return err
			}
			m.Appointments = append(m.Appointments, a)
		case 2:
			m.Total = int(f.int())
		}
		return nil
	})
}

type CreateAppointmentRequest struct {
	PatientName    string
	PatientAge     int
	PatientGender  model.Gender
	ReasonForVisit string
	DoctorID       string
	Date           time.Time
	Type           model.VisitType
	Notes          string
}

func (m *CreateAppointmentRequest) MarshalWire() []byte {
	var out []byte
	out = appendString(out, 1, m.PatientName)
	out = appendInt(out, 2, int64(m.PatientAge))
	out = appendString(out, 3, string(m.PatientGender))
	out = appendString(out, 4, m.ReasonForVisit)
	out = appendString(out, 5, m.DoctorID)
	out = appendTime(out, 6, m.Date)
	out = appendString(out, 7, string(m.Type))
	out = appendString(out, 8, m.Notes)
	return out
}

func (m *CreateAppointmentRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.PatientName = f.str()
		case 2:
			m.PatientAge = int(f.int())
		case 3:
			m.PatientGender = model.Gender(f.str())
		case 4:
			m.ReasonForVisit = f.str()
		case 5:
			m.DoctorID = f.str()
		case 6:
			m.Date, err = parseTime(f.b)
		case 7:
			m.Type = model.VisitType(f.str())
		case 8:
			m.Notes = f.str()
		}
		return err
	})
}

type CreateAppointmentResponse struct {
	ID string
}

func (m *CreateAppointmentResponse) MarshalWire() []byte {
	return appendString(nil, 1, m.ID)
}

func (m *CreateAppointmentResponse) UnmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			m.ID = f.str()
		}
		return nil
	})
}

// UpdateAppointmentRequest carries field presence: only fields that were
// on the wire end up non-nil in Patch.
type UpdateAppointmentRequest struct {
	ID    string
	Patch model.AppointmentPatch
}

func (m *UpdateAppointmentRequest) MarshalWire() []byte {
	p := m.Patch
	var out []byte
	out = appendString(out, 1, m.ID)
	out = appendOptString(out, 2, p.PatientName)
	out = appendOptInt(out, 3, p.PatientAge)
	if p.PatientGender != nil {
		g := string(*p.PatientGender)
		out = appendOptString(out, 4, &g)
	}
	out = appendOptString(out, 5, p.ReasonForVisit)
	out = appendOptString(out, 6, p.DoctorID)
	if p.Date != nil {
		out = appendTime(out, 7, *p.Date)
	}
	if p.Type != nil {
		t := string(*p.Type)
		out = appendOptString(out, 8, &t)
	}
	out = appendOptString(out, 9, p.Notes)
	return out
}

func (m *UpdateAppointmentRequest) UnmarshalWire(b []byte) error {
	p := &m.Patch
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.ID = f.str()
		case 2:
			s := f.str()
			p.PatientName = &s
		case 3:
			n := int(f.int())
			p.PatientAge = &n
		case 4:
			g := model.Gender(f.str())
			p.PatientGender = &g
		case 5:
			s := f.str()
			p.ReasonForVisit = &s
		case 6:
			s := f.str()
			p.DoctorID = &s
		case 7:
			t, err := parseTime(f.b)
			if err != nil {
				return err
			}
			p.Date = &t
		case 8:
			t := model.VisitType(f.str())
			p.Type = &t
		case 9:
			s := f.str()
			p.Notes = &s
		}
		return nil
	})
}

type DeleteAppointmentRequest struct {
	ID string
}

func (m *DeleteAppointmentRequest) MarshalWire() []byte {
	return appendString(nil, 1, m.ID)
}

func (m *DeleteAppointmentRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			m.ID = f.str()
		}
		return nil
	})
}

type ListDoctorsResponse struct {
	Doctors []model.PublicUser
}

func (m *ListDoctorsResponse) MarshalWire() []byte {
	var out []byte
	for _, d := range m.Doctors {
		out = appendUser(out, 1, d)
	}
	return out
}

func (m *ListDoctorsResponse) UnmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		u, err := parseUser(f.b)
		if err != nil {
			return err
		}
		m.Doctors = append(m.Doctors, u)
		return nil
	})
}
