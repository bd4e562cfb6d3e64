package core

import (
	"errors"
	"net/http"
)

type HandlerFunc func(c *Ctx) error

// Handle adapts fn to net/http. Errors returned by fn are turned into
// responses by the version conflict and validation handlers; anything
// else becomes a 500.
func (b *Bridge) Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := b.NewCtx(w, r)
		if err := fn(c); err != nil {
			b.HandleError(c, err)
		}
	}
}

func (b *Bridge) HandleError(c *Ctx, err error) {
	var conflict *VersionConflictError
	if errors.As(err, &conflict) {
		HandleVersionConflict(c, conflict)
		return
	}

	var invalid ValidationErrors
	if errors.As(err, &invalid) {
		HandleValidationErrors(c, invalid)
		return
	}

	b.logger.Error("handler failed",
		"method", c.R.Method,
		"path", c.R.URL.Path,
		"error", err,
	)
	http.Error(c.W, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// HandleVersionConflict tells the client to reload the page from
// scratch so it picks up the current assets.
func HandleVersionConflict(c *Ctx, err *VersionConflictError) {
	c.W.Header().Set(HeaderLocation, err.URL)
	c.W.WriteHeader(http.StatusConflict)
}

// HandleValidationErrors stores errs for the next render and sends
// Inertia clients back where they came from. Other clients get a 422.
func HandleValidationErrors(c *Ctx, errs ValidationErrors) {
	if !c.IsInertia() || c.Session == nil {
		_ = WriteJSON(c.W, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
		return
	}

	fields := make(map[string]any, len(errs))
	for k, v := range errs {
		fields[k] = v
	}

	stored := fields
	if bag := c.R.Header.Get(HeaderErrorBag); bag != "" {
		stored = map[string]any{bag: fields}
	}
	c.Session.Set(sessionErrorsKey, stored)

	http.Redirect(c.W, c.R, backURL(c.R), http.StatusSeeOther)
}
