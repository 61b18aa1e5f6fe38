package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nasermirzaei89/forum/authentication"
	authcontext "github.com/nasermirzaei89/forum/authentication/context"
)

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionValueNotFoundError *SessionValueNotFoundError

		sessionID, err := h.getSessionValue(r, sessionIDKey)
		if err != nil && !errors.As(err, &sessionValueNotFoundError) {
			slog.ErrorContext(
				r.Context(),
				"error on getting session value",
				"key",
				sessionIDKey,
				"error",
				err,
			)
			http.Error(w, "error on getting session value", http.StatusInternalServerError)

			return
		}

		id, _ := sessionID.(string)
		if id == "" {
			next.ServeHTTP(w, r)

			return
		}

		session, err := h.authSvc.GetSession(r.Context(), id)
		if err != nil {
			var (
				sessionNotFoundError *authentication.SessionNotFoundError
				sessionExpiredError  *authentication.SessionExpiredError
			)

			if errors.As(err, &sessionNotFoundError) || errors.As(err, &sessionExpiredError) {
				h.dropSession(w, r, next)

				return
			}

			slog.ErrorContext(r.Context(), "error on getting session", "sessionId", id, "error", err)
			http.Error(w, "error on getting session", http.StatusInternalServerError)

			return
		}

		r = r.WithContext(authcontext.WithSessionID(r.Context(), session.ID))

		user, err := h.authSvc.GetUser(r.Context(), session.UserID)
		if err != nil {
			var userNotFoundError *authentication.UserNotFoundError
			if errors.As(err, &userNotFoundError) {
				err = h.authSvc.Logout(r.Context(), session.ID)
				if err != nil {
					slog.ErrorContext(
						r.Context(),
						"error on logging out session",
						"sessionId",
						session.ID,
						"error",
						err,
					)
					http.Error(w, "error on logging out session", http.StatusInternalServerError)

					return
				}

				h.dropSession(w, r, next)

				return
			}

			slog.ErrorContext(r.Context(), "error retrieving user", "error", err)
			http.Error(w, "error on retrieving user", http.StatusInternalServerError)

			return
		}

		r = r.WithContext(authcontext.WithUID(r.Context(), user.ID))

		next.ServeHTTP(w, r)
	})
}

// dropSession forgets the session cookie and serves the request as a guest.
func (h *Handler) dropSession(w http.ResponseWriter, r *http.Request, next http.Handler) {
	err := h.deleteSessionValue(w, r, sessionIDKey)
	if err != nil {
		slog.ErrorContext(
			r.Context(),
			"error on deleting session value",
			"key",
			sessionIDKey,
			"error",
			err,
		)
		http.Error(w, "error on deleting session value", http.StatusInternalServerError)

		return
	}

	next.ServeHTTP(w, r)
}

func isAuthenticated(r *http.Request) bool {
	return authcontext.GetUID(r.Context()) != authcontext.Guest
}

func (h *Handler) AuthenticatedOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAuthenticated(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) GuestOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAuthenticated(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) AdminOnly(next http.Handler) http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isAdmin, err := h.authSvc.IsAdministrator(r.Context(), authcontext.GetUID(r.Context()))
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to check administrator", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		if !isAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)

			return
		}

		next.ServeHTTP(w, r)
	})

	return h.AuthenticatedOnly(hf)
}
