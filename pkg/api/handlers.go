package api

import (
	"context"
	"net/http"
)

// The registry exposes every entity through the same Create/Get/Update/Delete
// shapes, so handlers are built from the service's method values.

func createHandler[T any](create func(context.Context, *T) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := new(T)
		if err := decodeBody(r, in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out, err := create(r.Context(), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func getHandler[T any](get func(context.Context, uint) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out, err := get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func updateHandler[T, P any](update func(context.Context, uint, P) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var patch P
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out, err := update(r.Context(), id, patch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteHandler(del func(context.Context, uint) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := del(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listHandler[T any](list func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeList(w, items)
	}
}

// childListHandler lists records scoped to the parent identified by {id}.
func childListHandler[T any](list func(context.Context, uint) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		items, err := list(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeList(w, items)
	}
}

// limitedListHandler is childListHandler for feeds that honour ?limit.
func limitedListHandler[T any](list func(context.Context, uint, int) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultFeedLimit)
		childListHandler(func(ctx context.Context, id uint) ([]T, error) {
			return list(ctx, id, limit)
		})(w, r)
	}
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"size":  len(items),
	})
}
