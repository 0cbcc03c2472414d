package server

import (
	"net/http"

	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/jrsteele09/go-space-rental/forms"
	"github.com/rs/zerolog/log"
)

// SpacesPageData is the model of spaces.html. The list itself arrives later
// from RouteSpacesList.
type SpacesPageData struct {
	ListURL string
	Error   string
}

// SpacesPageHandler renders the spaces shell with its loading indicator.
func (s *Server) SpacesPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("spaces.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := SpacesPageData{ListURL: RouteSpacesList, Error: r.URL.Query().Get("error")}
		s.renderDashboardPage(w, r, http.StatusOK, "spaces", "Spaces", tmpl, data)
	}
}

// SpacesListHandler renders the spaces list fragment. A failed fetch is
// logged and shown as the empty state.
func (s *Server) SpacesListHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("spaces_list.html")

	return func(w http.ResponseWriter, r *http.Request) {
		spaces, err := apiFromContext(r.Context()).Spaces().List(r.Context(), 0, 0)
		if s.handleSessionEnded(w, r, err) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to fetch spaces")
			spaces = nil
		}
		renderHTML(w, tmpl, http.StatusOK, spaces)
	}
}

// SpaceFormPageData is the model of space_new.html
type SpaceFormPageData struct {
	Form   forms.SpaceForm
	Errors forms.FieldErrors
	Error  string
}

func (s *Server) SpaceNewPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("space_new.html")

	return func(w http.ResponseWriter, r *http.Request) {
		s.renderDashboardPage(w, r, http.StatusOK, "spaces", "New Space", tmpl, SpaceFormPageData{})
	}
}

// SpaceCreateHandler validates the form before any backend call and shows the
// backend's detail verbatim when creation fails.
func (s *Server) SpaceCreateHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("space_new.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := forms.ParseSpaceForm(r.PostForm)
		data := SpaceFormPageData{Form: form}

		req, fieldErrors := form.CreateRequest()
		if len(fieldErrors) > 0 {
			data.Errors = fieldErrors
			s.renderDashboardPage(w, r, http.StatusUnprocessableEntity, "spaces", "New Space", tmpl, data)
			return
		}

		_, err := apiFromContext(r.Context()).Spaces().Create(r.Context(), req)
		if s.handleSessionEnded(w, r, err) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create space")
			data.Error = forms.CreateSpaceFailedMessage(err)
			s.renderDashboardPage(w, r, http.StatusOK, "spaces", "New Space", tmpl, data)
			return
		}

		redirectSuccess(w, r, RouteSpaces)
	}
}

// SpaceDetailPageData is the model of space_detail.html. Form and Errors
// belong to the edit form, Reservation and ReservationErrors to the booking
// form.
type SpaceDetailPageData struct {
	Space             *apimodel.Space
	Form              forms.SpaceForm
	Errors            forms.FieldErrors
	Reservation       forms.ReservationForm
	ReservationErrors forms.FieldErrors
	ReservationError  string
	Error             string
}

func (s *Server) SpaceDetailHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("space_detail.html")

	return func(w http.ResponseWriter, r *http.Request) {
		s.renderSpaceDetail(w, r, tmpl, http.StatusOK, SpaceDetailPageData{Error: r.URL.Query().Get("error")})
	}
}

// SpaceUpdateHandler saves the edit form of the detail page.
func (s *Server) SpaceUpdateHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("space_detail.html")

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := forms.ParseSpaceForm(r.PostForm)
		req, fieldErrors := form.UpdateRequest()
		if len(fieldErrors) > 0 {
			s.renderSpaceDetail(w, r, tmpl, http.StatusUnprocessableEntity, SpaceDetailPageData{Form: form, Errors: fieldErrors})
			return
		}

		_, err := apiFromContext(r.Context()).Spaces().Update(r.Context(), id, req)
		if s.handleSessionEnded(w, r, err) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Int64("space_id", id).Msg("Failed to update space")
			s.renderSpaceDetail(w, r, tmpl, http.StatusOK, SpaceDetailPageData{
				Form:  form,
				Error: apiclient.DetailOr(err, "Failed to update space"),
			})
			return
		}

		redirectSuccess(w, r, spacePath(id))
	}
}

func (s *Server) SpaceDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		err := apiFromContext(r.Context()).Spaces().Delete(r.Context(), id)
		if s.handleSessionEnded(w, r, err) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Int64("space_id", id).Msg("Failed to delete space")
			redirectWithError(w, r, spacePath(id), apiclient.DetailOr(err, "Failed to delete space"))
			return
		}

		redirectSuccess(w, r, RouteSpaces)
	}
}

// SpaceReserveHandler books the space for the submitted time range.
func (s *Server) SpaceReserveHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("space_detail.html")

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := forms.ParseReservationForm(r.PostForm)
		req, fieldErrors := form.CreateRequest(id, s.location)
		if len(fieldErrors) > 0 {
			s.renderSpaceDetail(w, r, tmpl, http.StatusUnprocessableEntity, SpaceDetailPageData{Reservation: form, ReservationErrors: fieldErrors})
			return
		}

		_, err := apiFromContext(r.Context()).Reservations().Create(r.Context(), req)
		if s.handleSessionEnded(w, r, err) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Int64("space_id", id).Msg("Failed to create reservation")
			s.renderSpaceDetail(w, r, tmpl, http.StatusOK, SpaceDetailPageData{
				Reservation:      form,
				ReservationError: forms.ReservationFailedMessage(err),
			})
			return
		}

		redirectSuccess(w, r, RouteReservations)
	}
}

// renderSpaceDetail loads the space named by the route and renders its page.
// An empty data.Form is filled from the loaded space.
func (s *Server) renderSpaceDetail(w http.ResponseWriter, r *http.Request, tmpl templateExecutor, status int, data SpaceDetailPageData) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	space, err := apiFromContext(r.Context()).Spaces().Get(r.Context(), id)
	if s.handleSessionEnded(w, r, err) {
		return
	}
	if err != nil {
		if apiclient.StatusCode(err) == http.StatusNotFound {
			http.NotFound(w, r)
			return
		}
		log.Warn().Err(err).Int64("space_id", id).Msg("Failed to fetch space")
		redirectWithError(w, r, RouteSpaces, apiclient.DetailOr(err, "Failed to load space"))
		return
	}

	data.Space = space
	if data.Form == (forms.SpaceForm{}) {
		data.Form = forms.SpaceFormFrom(*space)
	}
	s.renderDashboardPage(w, r, status, "spaces", space.Name, tmpl, data)
}
