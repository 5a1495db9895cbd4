package main

import (
	"net/http"
)

type TriggerSweepRequest struct {
	CreatedAt string `json:"created_at" validate:"omitempty,datetime=2006-01-02"`
}

// triggerSweepHandler godoc
//
//	@Summary		Trigger a sweep
//	@Description	Kicks an immediate sweep round if the worker is idle, optionally narrowed to one creation date
//	@Tags			sweep
//	@Accept			json
//	@Produce		json
//	@Param			request	body		TriggerSweepRequest	false	"Sweep options"
//	@Success		202		{object}	map[string]string
//	@Failure		400		{object}	map[string]string
//	@Router			/sweep [post]
func (app *application) triggerSweepHandler(w http.ResponseWriter, r *http.Request) {
	var req TriggerSweepRequest
	if r.ContentLength != 0 {
		if err := readJson(w, r, &req); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		if err := Validate.Struct(req); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	app.sweepWorker.KickDate(req.CreatedAt)

	response := map[string]string{
		"status": "sweep scheduled",
	}
	if req.CreatedAt != "" {
		response["created_at"] = req.CreatedAt
	}

	if err := app.jsonRespone(w, http.StatusAccepted, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

// sweepStatsHandler godoc
//
//	@Summary		Sweep statistics
//	@Description	Cumulative round and task counters for the sweep worker
//	@Tags			sweep
//	@Produce		json
//	@Success		200	{object}	worker.Stats
//	@Router			/sweep/stats [get]
func (app *application) sweepStatsHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.jsonRespone(w, http.StatusOK, app.sweepWorker.Stats()); err != nil {
		app.internalServerError(w, r, err)
	}
}
