// Package forms turns submitted HTML forms into backend requests. Required
// fields are checked here so an incomplete form never reaches the network.
package forms

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/jrsteele09/go-space-rental/internal/errors"
	"github.com/jrsteele09/go-space-rental/internal/utils"
)

const (
	loginFailedFallback        = "Login failed. Please check your credentials."
	registrationFailedFallback = "Registration failed. Please check your information."
	CreateSpaceFailedFallback  = "Failed to create space"
)

// FieldErrors maps a form field name to its message.
type FieldErrors map[string]string

func (fe FieldErrors) add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

// Err returns nil when there are no field errors.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return errors.Wrapf(errors.ErrValidation, "invalid fields [%s]", strings.Join(fields, ", "))
}

func required(fe FieldErrors, field, value, label string) {
	if strings.TrimSpace(value) == "" {
		fe.add(field, label+" is required")
	}
}

type LoginForm struct {
	Email    string
	Password string
}

func ParseLoginForm(v url.Values) LoginForm {
	return LoginForm{
		Email:    strings.TrimSpace(v.Get("email")),
		Password: v.Get("password"),
	}
}

func (f LoginForm) Validate() FieldErrors {
	fe := FieldErrors{}
	required(fe, "email", f.Email, "Email")
	required(fe, "password", f.Password, "Password")
	return fe
}

func (f LoginForm) Request() apimodel.LoginRequest {
	return apimodel.LoginRequest{Email: f.Email, Password: f.Password}
}

type RegisterForm struct {
	FullName         string
	Email            string
	Password         string
	OrganizationName string
	OrganizationSlug string
}

// ParseRegisterForm derives the slug from the organization name as typed,
// before trimming, when the slug field was left blank. A slug typed by the
// user is kept as is.
func ParseRegisterForm(v url.Values) RegisterForm {
	f := RegisterForm{
		FullName:         strings.TrimSpace(v.Get("full_name")),
		Email:            strings.TrimSpace(v.Get("email")),
		Password:         v.Get("password"),
		OrganizationName: strings.TrimSpace(v.Get("organization_name")),
		OrganizationSlug: strings.TrimSpace(v.Get("organization_slug")),
	}
	if f.OrganizationSlug == "" {
		f.OrganizationSlug = Slugify(v.Get("organization_name"))
	}
	return f
}

func (f RegisterForm) Validate() FieldErrors {
	fe := FieldErrors{}
	required(fe, "email", f.Email, "Email")
	required(fe, "password", f.Password, "Password")
	required(fe, "organization_name", f.OrganizationName, "Organization name")
	required(fe, "organization_slug", f.OrganizationSlug, "Organization slug")
	return fe
}

func (f RegisterForm) Request() apimodel.RegisterRequest {
	return apimodel.RegisterRequest{
		Email:            f.Email,
		Password:         f.Password,
		FullName:         f.FullName,
		OrganizationName: f.OrganizationName,
		OrganizationSlug: f.OrganizationSlug,
	}
}

// SpaceForm holds the raw field values so they can be echoed back on error.
type SpaceForm struct {
	Name         string
	Description  string
	Capacity     string
	PricePerHour string
	Amenities    string
}

func ParseSpaceForm(v url.Values) SpaceForm {
	return SpaceForm{
		Name:         strings.TrimSpace(v.Get("name")),
		Description:  strings.TrimSpace(v.Get("description")),
		Capacity:     strings.TrimSpace(v.Get("capacity")),
		PricePerHour: strings.TrimSpace(v.Get("price_per_hour")),
		Amenities:    v.Get("amenities"),
	}
}

// SpaceFormFrom fills the form from an existing space, for editing.
func SpaceFormFrom(s apimodel.Space) SpaceForm {
	return SpaceForm{
		Name:         s.Name,
		Description:  s.Description,
		Capacity:     strconv.Itoa(s.Capacity),
		PricePerHour: strconv.FormatFloat(s.PricePerHour, 'f', -1, 64),
		Amenities:    strings.Join(s.Amenities, ", "),
	}
}

func (f SpaceForm) parse() (capacity int, price float64, fe FieldErrors) {
	fe = FieldErrors{}
	required(fe, "name", f.Name, "Name")
	required(fe, "capacity", f.Capacity, "Capacity")
	required(fe, "price_per_hour", f.PricePerHour, "Price per hour")

	if f.Capacity != "" {
		n, err := strconv.Atoi(f.Capacity)
		if err != nil || n < 1 {
			fe.add("capacity", "Capacity must be a whole number of at least 1")
		}
		capacity = n
	}
	if f.PricePerHour != "" {
		p, err := strconv.ParseFloat(f.PricePerHour, 64)
		if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			fe.add("price_per_hour", "Price per hour must be a number of at least 0")
		}
		price = p
	}
	return capacity, price, fe
}

func (f SpaceForm) amenities() []string {
	var out []string
	for _, a := range strings.Split(f.Amenities, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// CreateRequest validates the form. The request is only meaningful when the
// returned FieldErrors is empty.
func (f SpaceForm) CreateRequest() (apimodel.CreateSpaceRequest, FieldErrors) {
	capacity, price, fe := f.parse()
	return apimodel.CreateSpaceRequest{
		Name:         f.Name,
		Description:  f.Description,
		Capacity:     capacity,
		PricePerHour: price,
		Amenities:    f.amenities(),
	}, fe
}

// UpdateRequest sends every editable field; the same rules as create apply.
func (f SpaceForm) UpdateRequest() (apimodel.UpdateSpaceRequest, FieldErrors) {
	capacity, price, fe := f.parse()
	amenities := f.amenities()
	if amenities == nil {
		amenities = []string{}
	}
	return apimodel.UpdateSpaceRequest{
		Name:         utils.Ptr(f.Name),
		Description:  utils.Ptr(f.Description),
		Capacity:     utils.Ptr(capacity),
		PricePerHour: utils.Ptr(price),
		Amenities:    &amenities,
	}, fe
}

func LoginFailedMessage(err error) string {
	if detail := apiclient.DetailOr(err, ""); detail != "" {
		return fmt.Sprintf("Login failed: %s", detail)
	}
	return loginFailedFallback
}

func RegistrationFailedMessage(err error) string {
	if detail := apiclient.DetailOr(err, ""); detail != "" {
		return fmt.Sprintf("Registration failed: %s", detail)
	}
	return registrationFailedFallback
}

// CreateSpaceFailedMessage shows the backend detail verbatim.
func CreateSpaceFailedMessage(err error) string {
	return apiclient.DetailOr(err, CreateSpaceFailedFallback)
}

// DateTimeLocalLayout is the value format of an <input type="datetime-local">.
const DateTimeLocalLayout = "2006-01-02T15:04"

type ReservationForm struct {
	StartTime string
	EndTime   string
	Notes     string
}

func ParseReservationForm(v url.Values) ReservationForm {
	return ReservationForm{
		StartTime: strings.TrimSpace(v.Get("start_time")),
		EndTime:   strings.TrimSpace(v.Get("end_time")),
		Notes:     strings.TrimSpace(v.Get("notes")),
	}
}

// CreateRequest reads both times in loc and requires the end to be after the
// start.
func (f ReservationForm) CreateRequest(spaceID int64, loc *time.Location) (apimodel.CreateReservationRequest, FieldErrors) {
	fe := FieldErrors{}
	required(fe, "start_time", f.StartTime, "Start time")
	required(fe, "end_time", f.EndTime, "End time")

	var start, end time.Time
	var err error
	if f.StartTime != "" {
		if start, err = time.ParseInLocation(DateTimeLocalLayout, f.StartTime, loc); err != nil {
			fe.add("start_time", "Start time is not a valid date and time")
		}
	}
	if f.EndTime != "" {
		if end, err = time.ParseInLocation(DateTimeLocalLayout, f.EndTime, loc); err != nil {
			fe.add("end_time", "End time is not a valid date and time")
		}
	}
	if len(fe) == 0 && !end.After(start) {
		fe.add("end_time", "End time must be after start time")
	}

	return apimodel.CreateReservationRequest{
		SpaceID:   spaceID,
		StartTime: start,
		EndTime:   end,
		Notes:     f.Notes,
	}, fe
}

// ReservationFailedMessage shows the backend detail verbatim.
func ReservationFailedMessage(err error) string {
	return apiclient.DetailOr(err, "Failed to create reservation")
}
