package server

import (
	"net/http"

	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/rs/zerolog/log"
)

// ReservationRow pairs a reservation with the name of its space.
type ReservationRow struct {
	apimodel.Reservation
	SpaceName string
}

// Cancellable reports whether the row gets a cancel button.
func (r ReservationRow) Cancellable() bool {
	return r.Status == apimodel.ReservationPending || r.Status == apimodel.ReservationConfirmed
}

type ReservationsPageData struct {
	Rows  []ReservationRow
	Error string
}

// ReservationsPageHandler lists the caller's reservations. Fetch failures are
// logged and shown as an empty list.
func (s *Server) ReservationsPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("reservations.html")

	return func(w http.ResponseWriter, r *http.Request) {
		api := apiFromContext(r.Context())
		data := ReservationsPageData{Error: r.URL.Query().Get("error")}

		reservations, err := api.Reservations().List(r.Context(), 0, 0)
		if s.handleSessionEnded(w, r, err) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to fetch reservations")
		}

		names := map[int64]string{}
		if len(reservations) > 0 {
			spaces, err := api.Spaces().List(r.Context(), 0, 0)
			if s.handleSessionEnded(w, r, err) {
				return
			}
			if err != nil {
				log.Warn().Err(err).Msg("Failed to fetch spaces for reservations")
			}
			for _, sp := range spaces {
				names[sp.ID] = sp.Name
			}
		}

		for _, res := range reservations {
			row := ReservationRow{Reservation: res, SpaceName: names[res.SpaceID]}
			if row.SpaceName == "" {
				row.SpaceName = "Space #" + formatID(res.SpaceID)
			}
			data.Rows = append(data.Rows, row)
		}

		s.renderDashboardPage(w, r, http.StatusOK, "reservations", "Reservations", tmpl, data)
	}
}

func (s *Server) ReservationCancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		err := apiFromContext(r.Context()).Reservations().Cancel(r.Context(), id)
		if s.handleSessionEnded(w, r, err) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Int64("reservation_id", id).Msg("Failed to cancel reservation")
			redirectWithError(w, r, RouteReservations, apiclient.DetailOr(err, "Failed to cancel reservation"))
			return
		}

		redirectSuccess(w, r, RouteReservations)
	}
}
