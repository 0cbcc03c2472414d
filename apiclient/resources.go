package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-space-rental/apimodel"
)

const defaultPageLimit = 100

func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	req, err := newRequest(method, path, query, payload)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

func pageQuery(skip, limit int) url.Values {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	return url.Values{
		"skip":  {strconv.Itoa(skip)},
		"limit": {strconv.Itoa(limit)},
	}
}

func idPath(collection string, id int64) string {
	return collection + "/" + strconv.FormatInt(id, 10)
}

type OrgsAPI struct {
	c *Client
}

func (o OrgsAPI) List(ctx context.Context) ([]apimodel.OrganizationMembership, error) {
	var out []apimodel.OrganizationMembership
	if err := o.c.call(ctx, http.MethodGet, "orgs", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (o OrgsAPI) Create(ctx context.Context, data apimodel.CreateOrganizationRequest) (*apimodel.OrganizationMembership, error) {
	var out apimodel.OrganizationMembership
	if err := o.c.call(ctx, http.MethodPost, "orgs", nil, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (o OrgsAPI) GetBySlug(ctx context.Context, slug string) (*apimodel.Organization, error) {
	var out apimodel.Organization
	if err := o.c.call(ctx, http.MethodGet, "orgs/"+url.PathEscape(slug), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (o OrgsAPI) Invite(ctx context.Context, orgID int64, data apimodel.InviteRequest) (*apimodel.InviteResponse, error) {
	var out apimodel.InviteResponse
	if err := o.c.call(ctx, http.MethodPost, idPath("orgs", orgID)+"/invite", nil, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type SpacesAPI struct {
	c *Client
}

// List returns one page of spaces; limit <= 0 means the backend default of 100.
func (s SpacesAPI) List(ctx context.Context, skip, limit int) ([]apimodel.Space, error) {
	out := []apimodel.Space{}
	if err := s.c.call(ctx, http.MethodGet, "spaces", pageQuery(skip, limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s SpacesAPI) Create(ctx context.Context, data apimodel.CreateSpaceRequest) (*apimodel.Space, error) {
	var out apimodel.Space
	if err := s.c.call(ctx, http.MethodPost, "spaces", nil, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s SpacesAPI) Get(ctx context.Context, id int64) (*apimodel.Space, error) {
	var out apimodel.Space
	if err := s.c.call(ctx, http.MethodGet, idPath("spaces", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s SpacesAPI) Update(ctx context.Context, id int64, data apimodel.UpdateSpaceRequest) (*apimodel.Space, error) {
	var out apimodel.Space
	if err := s.c.call(ctx, http.MethodPut, idPath("spaces", id), nil, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s SpacesAPI) Delete(ctx context.Context, id int64) error {
	return s.c.call(ctx, http.MethodDelete, idPath("spaces", id), nil, nil, nil)
}

type ReservationsAPI struct {
	c *Client
}

func (r ReservationsAPI) List(ctx context.Context, skip, limit int) ([]apimodel.Reservation, error) {
	out := []apimodel.Reservation{}
	if err := r.c.call(ctx, http.MethodGet, "reservations", pageQuery(skip, limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r ReservationsAPI) Create(ctx context.Context, data apimodel.CreateReservationRequest) (*apimodel.Reservation, error) {
	var out apimodel.Reservation
	if err := r.c.call(ctx, http.MethodPost, "reservations", nil, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r ReservationsAPI) Get(ctx context.Context, id int64) (*apimodel.Reservation, error) {
	var out apimodel.Reservation
	if err := r.c.call(ctx, http.MethodGet, idPath("reservations", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r ReservationsAPI) Update(ctx context.Context, id int64, data apimodel.UpdateReservationRequest) (*apimodel.Reservation, error) {
	var out apimodel.Reservation
	if err := r.c.call(ctx, http.MethodPut, idPath("reservations", id), nil, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel sets the reservation status to CANCELLED on the backend.
func (r ReservationsAPI) Cancel(ctx context.Context, id int64) error {
	return r.c.call(ctx, http.MethodDelete, idPath("reservations", id), nil, nil, nil)
}
