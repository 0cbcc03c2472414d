package fakebackend

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/jrsteele09/go-space-rental/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type userRecord struct {
	apimodel.User
	passwordHash string
}

type membership struct {
	userID    int64
	orgID     int64
	role      string
	status    string
	createdAt time.Time
}

type reservationRecord struct {
	apimodel.Reservation
	orgID int64
}

type refreshRecord struct {
	userID    int64
	expiresAt time.Time
	revoked   bool
}

// store is the in-memory state of the stub backend. Spaces and reservations
// are partitioned by organization the way tenant schemas partition them on the
// real backend.
type store struct {
	mu sync.RWMutex

	nextID int64

	users         map[int64]*userRecord
	emailIDs      map[string]int64
	orgs          map[int64]*apimodel.Organization
	slugIDs       map[string]int64
	members       []membership
	spaces        map[int64]*apimodel.Space
	reservations  map[int64]*reservationRecord
	refreshTokens map[string]*refreshRecord
}

func newStore() *store {
	return &store{
		users:         make(map[int64]*userRecord),
		emailIDs:      make(map[string]int64),
		orgs:          make(map[int64]*apimodel.Organization),
		slugIDs:       make(map[string]int64),
		spaces:        make(map[int64]*apimodel.Space),
		reservations:  make(map[int64]*reservationRecord),
		refreshTokens: make(map[string]*refreshRecord),
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

// register creates a user, an organization and the OWNER membership linking
// them. It returns the user and the organization id.
func (s *store) register(req apimodel.RegisterRequest) (apimodel.User, int64, error) {
	hash, err := hashPassword(req.Password)
	if err != nil {
		return apimodel.User{}, 0, errors.Wrapf(err, "hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emailIDs[req.Email]; ok {
		return apimodel.User{}, 0, errors.ErrEmailTaken
	}
	if _, ok := s.slugIDs[req.OrganizationSlug]; ok {
		return apimodel.User{}, 0, errors.ErrSlugTaken
	}

	now := NowTimeFunc().UTC()
	org := s.createOrgLocked(req.OrganizationName, req.OrganizationSlug, now)

	u := &userRecord{
		User: apimodel.User{
			ID:          s.id(),
			Email:       req.Email,
			FullName:    req.FullName,
			IsActive:    true,
			IsSuperuser: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		passwordHash: hash,
	}
	s.users[u.ID] = u
	s.emailIDs[u.Email] = u.ID
	s.members = append(s.members, membership{userID: u.ID, orgID: org.ID, role: apimodel.RoleOwner, status: apimodel.MemberStatusActive, createdAt: now})
	return u.User, org.ID, nil
}

func (s *store) createOrgLocked(name, slug string, now time.Time) *apimodel.Organization {
	org := &apimodel.Organization{
		ID:        s.id(),
		Name:      name,
		Slug:      slug,
		IsActive:  true,
		CreatedAt: now,
	}
	s.orgs[org.ID] = org
	s.slugIDs[slug] = org.ID
	return org
}

// authenticate checks the credentials and returns the user's first active
// organization.
func (s *store) authenticate(email, password string) (apimodel.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIDs[email]
	if !ok {
		return apimodel.User{}, 0, errors.ErrInvalidCredentials
	}
	u := s.users[id]
	if err := bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)); err != nil {
		return apimodel.User{}, 0, errors.ErrInvalidCredentials
	}
	if !u.IsActive {
		return apimodel.User{}, 0, errors.ErrInactiveUser
	}
	orgID, err := s.activeOrgLocked(id)
	if err != nil {
		return apimodel.User{}, 0, err
	}
	return u.User, orgID, nil
}

func (s *store) activeOrgLocked(userID int64) (int64, error) {
	for _, m := range s.members {
		if m.userID == userID && m.status == apimodel.MemberStatusActive {
			return m.orgID, nil
		}
	}
	return 0, errors.ErrNoActiveMembership
}

func (s *store) user(id int64) (apimodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return apimodel.User{}, errors.ErrUserNotFound
	}
	return u.User, nil
}

func (s *store) saveRefreshToken(token string, userID int64, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[token] = &refreshRecord{userID: userID, expiresAt: expiresAt}
}

// rotateRefreshToken revokes token and returns the user and organization the
// replacement pair must be issued for.
func (s *store) rotateRefreshToken(token string) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.refreshTokens[token]
	if !ok || rec.revoked {
		return 0, 0, errors.ErrInvalidRefreshToken
	}
	if NowTimeFunc().After(rec.expiresAt) {
		return 0, 0, errors.ErrRefreshTokenExpired
	}
	if _, ok := s.users[rec.userID]; !ok {
		return 0, 0, errors.ErrUserNotFound
	}
	orgID, err := s.activeOrgLocked(rec.userID)
	if err != nil {
		return 0, 0, err
	}
	rec.revoked = true
	return rec.userID, orgID, nil
}

func (s *store) membershipsOf(userID int64) []apimodel.OrganizationMembership {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []apimodel.OrganizationMembership{}
	for _, m := range s.members {
		if m.userID != userID {
			continue
		}
		out = append(out, apimodel.OrganizationMembership{
			Organization: *s.orgs[m.orgID],
			Role:         m.role,
			Status:       m.status,
			CreatedAt:    m.createdAt,
		})
	}
	return out
}

func (s *store) createOrg(userID int64, req apimodel.CreateOrganizationRequest) (apimodel.OrganizationMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slugIDs[req.Slug]; ok {
		return apimodel.OrganizationMembership{}, errors.ErrSlugTaken
	}
	now := NowTimeFunc().UTC()
	org := s.createOrgLocked(req.Name, req.Slug, now)
	m := membership{userID: userID, orgID: org.ID, role: apimodel.RoleOwner, status: apimodel.MemberStatusActive, createdAt: now}
	s.members = append(s.members, m)
	return apimodel.OrganizationMembership{Organization: *org, Role: m.role, Status: m.status, CreatedAt: now}, nil
}

func (s *store) memberOrgBySlug(userID int64, slug string) (apimodel.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slugIDs[slug]
	if !ok {
		return apimodel.Organization{}, errors.ErrNotFound
	}
	for _, m := range s.members {
		if m.userID == userID && m.orgID == id {
			return *s.orgs[id], nil
		}
	}
	return apimodel.Organization{}, errors.ErrNotFound
}

// invite adds an existing user to the organization. Unknown emails are
// accepted as a simulated invitation; added reports which case happened.
func (s *store) invite(inviterID, orgID int64, req apimodel.InviteRequest) (added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := false
	for _, m := range s.members {
		if m.userID == inviterID && m.orgID == orgID && (m.role == apimodel.RoleOwner || m.role == apimodel.RoleAdmin) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, errors.ErrForbidden
	}

	userID, ok := s.emailIDs[req.Email]
	if !ok {
		return false, nil
	}
	for _, m := range s.members {
		if m.userID == userID && m.orgID == orgID {
			return false, errors.ErrAlreadyMember
		}
	}
	role := req.Role
	if role == "" {
		role = apimodel.RoleMember
	}
	s.members = append(s.members, membership{userID: userID, orgID: orgID, role: role, status: apimodel.MemberStatusActive, createdAt: NowTimeFunc().UTC()})
	return true, nil
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *store) listSpaces(orgID int64, skip, limit int) []apimodel.Space {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []apimodel.Space{}
	for _, sp := range s.spaces {
		if sp.OrganizationID == orgID {
			out = append(out, *sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, skip, limit)
}

func (s *store) createSpace(orgID int64, req apimodel.CreateSpaceRequest) apimodel.Space {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := NowTimeFunc().UTC()
	sp := &apimodel.Space{
		ID:             s.id(),
		OrganizationID: orgID,
		Name:           req.Name,
		Description:    req.Description,
		Capacity:       req.Capacity,
		PricePerHour:   req.PricePerHour,
		Amenities:      req.Amenities,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.spaces[sp.ID] = sp
	return *sp
}

func (s *store) spaceLocked(orgID, id int64) (*apimodel.Space, error) {
	sp, ok := s.spaces[id]
	if !ok || sp.OrganizationID != orgID {
		return nil, errors.ErrNotFound
	}
	return sp, nil
}

func (s *store) space(orgID, id int64) (apimodel.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, err := s.spaceLocked(orgID, id)
	if err != nil {
		return apimodel.Space{}, err
	}
	return *sp, nil
}

func (s *store) updateSpace(orgID, id int64, req apimodel.UpdateSpaceRequest) (apimodel.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.spaceLocked(orgID, id)
	if err != nil {
		return apimodel.Space{}, err
	}
	if req.Name != nil {
		sp.Name = *req.Name
	}
	if req.Description != nil {
		sp.Description = *req.Description
	}
	if req.Capacity != nil {
		sp.Capacity = *req.Capacity
	}
	if req.PricePerHour != nil {
		sp.PricePerHour = *req.PricePerHour
	}
	if req.Amenities != nil {
		sp.Amenities = *req.Amenities
	}
	if req.IsActive != nil {
		sp.IsActive = *req.IsActive
	}
	sp.UpdatedAt = NowTimeFunc().UTC()
	return *sp, nil
}

func (s *store) deleteSpace(orgID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.spaceLocked(orgID, id); err != nil {
		return err
	}
	delete(s.spaces, id)
	return nil
}

func (s *store) listReservations(orgID, userID int64, skip, limit int) []apimodel.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []apimodel.Reservation{}
	for _, r := range s.reservations {
		if r.orgID == orgID && r.UserID == userID {
			out = append(out, r.Reservation)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, skip, limit)
}

// createReservation prices the booking by the hour, rounded to cents.
func (s *store) createReservation(orgID, userID int64, req apimodel.CreateReservationRequest) (apimodel.Reservation, error) {
	if !req.EndTime.After(req.StartTime) {
		return apimodel.Reservation{}, errors.Wrapf(errors.ErrValidation, "end_time must be after start_time")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.spaceLocked(orgID, req.SpaceID)
	if err != nil {
		return apimodel.Reservation{}, err
	}
	if !sp.IsActive {
		return apimodel.Reservation{}, errors.ErrUnavailable
	}

	hours := req.EndTime.Sub(req.StartTime).Hours()
	now := NowTimeFunc().UTC()
	r := &reservationRecord{
		Reservation: apimodel.Reservation{
			ID:         s.id(),
			SpaceID:    sp.ID,
			UserID:     userID,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			TotalPrice: math.Round(hours*sp.PricePerHour*100) / 100,
			Status:     apimodel.ReservationPending,
			Notes:      req.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		orgID: orgID,
	}
	s.reservations[r.ID] = r
	return r.Reservation, nil
}

func (s *store) reservationLocked(orgID, userID, id int64) (*reservationRecord, error) {
	r, ok := s.reservations[id]
	if !ok || r.orgID != orgID || r.UserID != userID {
		return nil, errors.ErrNotFound
	}
	return r, nil
}

func (s *store) reservation(orgID, userID, id int64) (apimodel.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.reservationLocked(orgID, userID, id)
	if err != nil {
		return apimodel.Reservation{}, err
	}
	return r.Reservation, nil
}

func (s *store) updateReservation(orgID, userID, id int64, req apimodel.UpdateReservationRequest) (apimodel.Reservation, error) {
	if req.Status != nil && !req.Status.Valid() {
		return apimodel.Reservation{}, errors.Wrapf(errors.ErrValidation, "unknown status %q", *req.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.reservationLocked(orgID, userID, id)
	if err != nil {
		return apimodel.Reservation{}, err
	}
	if req.StartTime != nil {
		r.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		r.EndTime = *req.EndTime
	}
	if req.Status != nil {
		r.Status = *req.Status
	}
	if req.Notes != nil {
		r.Notes = *req.Notes
	}
	r.UpdatedAt = NowTimeFunc().UTC()
	return r.Reservation, nil
}

// cancelReservation keeps the record and marks it CANCELLED.
func (s *store) cancelReservation(orgID, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.reservationLocked(orgID, userID, id)
	if err != nil {
		return err
	}
	r.Status = apimodel.ReservationCancelled
	r.UpdatedAt = NowTimeFunc().UTC()
	return nil
}
