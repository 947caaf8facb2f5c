package model

import "time"

type Role string

const (
	RoleDoctor Role = "Doctor"
	RoleAdmin  Role = "Admin"
)

func (r Role) Valid() bool {
	return r == RoleDoctor || r == RoleAdmin
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type VisitType string

const (
	VisitInPerson VisitType = "In-Person"
	VisitVirtual  VisitType = "Virtual"
)

func (t VisitType) Valid() bool {
	return t == VisitInPerson || t == VisitVirtual
}

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Role         Role      `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// PublicUser is the client-facing view of a User.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type Appointment struct {
	ID             string    `json:"id" bson:"_id"`
	PatientName    string    `json:"patientName" bson:"patientName"`
	PatientAge     int       `json:"patientAge" bson:"patientAge"`
	PatientGender  Gender    `json:"patientGender,omitempty" bson:"patientGender"`
	ReasonForVisit string    `json:"reasonForVisit" bson:"reasonForVisit"`
	DoctorID       string    `json:"doctorId" bson:"doctorId"`
	DoctorName     string    `json:"doctorName" bson:"doctorName"`
	Date           time.Time `json:"date" bson:"date"`
	Type           VisitType `json:"type" bson:"type"`
	Notes          string    `json:"notes" bson:"notes"`
	CreatedBy      string    `json:"createdBy" bson:"createdBy"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// AppointmentPatch carries a partial update; nil fields are left untouched.
type AppointmentPatch struct {
	PatientName    *string
	PatientAge     *int
	PatientGender  *Gender
	ReasonForVisit *string
	DoctorID       *string
	DoctorName     *string
	Date           *time.Time
	Type           *VisitType
	Notes          *string
}

func (p AppointmentPatch) Empty() bool {
	return p.PatientName == nil && p.PatientAge == nil && p.PatientGender == nil &&
		p.ReasonForVisit == nil && p.DoctorID == nil && p.DoctorName == nil &&
		p.Date == nil && p.Type == nil && p.Notes == nil
}

// Apply merges the patch into a.
func (p AppointmentPatch) Apply(a *Appointment) {
	if p.PatientName != nil {
		a.PatientName = *p.PatientName
	}
	if p.PatientAge != nil {
		a.PatientAge = *p.PatientAge
	}
	if p.PatientGender != nil {
		a.PatientGender = *p.PatientGender
	}
	if p.ReasonForVisit != nil {
		a.ReasonForVisit = *p.ReasonForVisit
	}
	if p.DoctorID != nil {
		a.DoctorID = *p.DoctorID
	}
	if p.DoctorName != nil {
		a.DoctorName = *p.DoctorName
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
}

type RefreshToken struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"userId"`
	TokenHash  string    `bson:"tokenHash"`
	ExpiresAt  time.Time `bson:"expiresAt"`
	Revoked    bool      `bson:"revoked"`
	ReplacedBy *string   `bson:"replacedBy,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// Identity is the caller on whose behalf an operation runs.
type Identity struct {
	UserID string
	Role   Role
}

type SupportTicket struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Role        Role      `json:"role"`
	IssueType   string    `json:"issueType"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
