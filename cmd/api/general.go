package main

import (
	"net/http"
	"time"
)

// healthcheckHandler() reports the service status, the running version and
// whether a transaction dataset is loaded.
func (app *application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	_, loadedAt, loaded := app.dataset.snapshot()
	datasetInfo := map[string]any{
		"loaded": loaded,
	}
	if loaded {
		datasetInfo["loaded_at"] = loadedAt.UTC().Format(time.RFC3339)
	}
	if err := app.dataset.err(); err != nil {
		datasetInfo["last_error"] = err.Error()
	}
	env := envelope{
		"status": "available",
		"system_info": map[string]string{
			"environment": app.config.env,
			"version":     version,
		},
		"dataset": datasetInfo,
	}
	err := app.writeJSON(w, http.StatusOK, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
